package domain

import "strings"

const (
	MaxQueryLength    = 500
	DefaultMaxResults = 20
)

type SortOrder string

const (
	SortRelevance SortOrder = "relevance"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
)

func (s SortOrder) IsValid() bool {
	switch s {
	case SortRelevance, SortPriceAsc, SortPriceDesc:
		return true
	}
	return false
}

// SearchOptions - параметры одного поиска.
// Services - какие магазины опрашивать; пустой список = никого не опрашиваем.
type SearchOptions struct {
	MaxResults int
	Sort       SortOrder
	Services   []string
}

func (o *SearchOptions) Normalize() {
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	if o.Sort == "" {
		o.Sort = SortRelevance
	}
}

func (o *SearchOptions) Validate() error {
	if o.Sort != "" && !o.Sort.IsValid() {
		return ErrInvalidSortOrder
	}
	return nil
}

// NormalizeQuery - нормализация для ключей кеша и сравнения
func NormalizeQuery(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	return strings.Join(strings.Fields(q), " ")
}
