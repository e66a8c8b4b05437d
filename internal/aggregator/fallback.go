package aggregator

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jdelacuesta/rasuto-sub002/internal/domain"
)

// QueryTransform - один вариант переписывания запроса.
// Возвращает пустую строку, если вариант неприменим.
type QueryTransform func(query string) string

// FallbackChain - упорядоченный список трансформаций запроса.
// Пробуем по порядку и останавливаемся на первом непустом результате:
// цепочка вариантов как данные, а не вложенные if.
type FallbackChain []QueryTransform

// стандартная цепочка: как есть -> без пунктуации -> без последнего слова ->
// первые два слова
var DefaultFallbacks = FallbackChain{
	Identity,
	StripPunctuation,
	DropLastWord,
	FirstWords(2),
}

func Identity(query string) string { return query }

func StripPunctuation(query string) string {
	var b strings.Builder
	for _, r := range query {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")
	if cleaned == query {
		return "" // ничего не изменилось, вариант не нужен
	}
	return cleaned
}

func DropLastWord(query string) string {
	fields := strings.Fields(query)
	if len(fields) < 2 {
		return ""
	}
	return strings.Join(fields[:len(fields)-1], " ")
}

func FirstWords(n int) QueryTransform {
	return func(query string) string {
		fields := strings.Fields(query)
		if len(fields) <= n {
			return ""
		}
		return strings.Join(fields[:n], " ")
	}
}

// SearchWithFallback прогоняет запрос через цепочку вариантов и
// останавливается на первом непустом результате. Ошибка всплывает только
// если все варианты провалились, а последний вернул ошибку.
func (c *Coordinator) SearchWithFallback(ctx context.Context, query string, opts domain.SearchOptions, chain FallbackChain) (*Result, error) {
	if len(chain) == 0 {
		chain = DefaultFallbacks
	}

	var last *Result
	var lastErr error
	tried := make(map[string]bool)

	for _, transform := range chain {
		candidate := strings.TrimSpace(transform(query))
		if candidate == "" || tried[candidate] {
			continue
		}
		tried[candidate] = true

		result, err := c.Search(ctx, candidate, opts)
		if err != nil {
			lastErr = err
			continue
		}
		if len(result.Products) > 0 {
			if candidate != query {
				c.logger.Debug("fallback query succeeded",
					zap.String("original", query),
					zap.String("used", candidate),
				)
			}
			return result, nil
		}
		last = result
		lastErr = nil
	}

	if last != nil {
		return last, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	// ни один вариант не был применим (например, пустой запрос)
	return c.Search(ctx, query, opts)
}
