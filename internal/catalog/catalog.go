package catalog

import (
	"context"
	"errors"

	"github.com/jdelacuesta/rasuto-sub002/internal/domain"
)

var (
	ErrUnauthorized  = errors.New("invalid or expired credentials")
	ErrRateLimit     = errors.New("rate limit exceeded")
	ErrNotFound      = errors.New("product not found")
	ErrDecode        = errors.New("unexpected upstream payload")
	ErrRequestFailed = errors.New("catalog request failed")
)

// Client - контракт адаптера одного магазина.
// Адаптер - чистый слой трансляции: без кеширования и без rate limiting,
// это ответственность обертки (gate).
type Client interface {
	SearchProducts(ctx context.Context, query string) ([]domain.Product, error)
	GetProductDetails(ctx context.Context, id string) (*domain.Product, error)
	GetRelatedProducts(ctx context.Context, id string) ([]domain.Product, error)
}

// Transient сообщает, стоит ли ретраить ошибку.
// 401/403, кривой payload и not found ретраить бессмысленно.
func Transient(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrDecode),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrRateLimit):
		return false
	case errors.Is(err, context.Canceled):
		return false
	}
	return true
}
