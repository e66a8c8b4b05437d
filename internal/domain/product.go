package domain

import "strings"

// Product - общее представление товара из любого магазина.
// Адаптеры маппят свои нативные ответы в эту структуру.
type Product struct {
	SourceID      string   `json:"source_id"` // уникален в рамках своего сервиса
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	OriginalPrice *float64 `json:"original_price,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	ImageURLs     []string `json:"image_urls,omitempty"`
	Brand         string   `json:"brand,omitempty"`
	Service       string   `json:"service"`
	Category      string   `json:"category,omitempty"`
	InStock       bool     `json:"in_stock"`
	Rating        *float64 `json:"rating,omitempty"`
	ReviewCount   *int     `json:"review_count,omitempty"`
	URL           string   `json:"url,omitempty"`
}

func (p *Product) Validate() error {
	if strings.TrimSpace(p.SourceID) == "" {
		return ErrEmptyProductID
	}
	if p.Price != nil && *p.Price < 0 {
		return ErrNegativePrice
	}
	return nil
}

// HasDiscount - original price имеет смысл только когда он выше текущей цены
func (p *Product) HasDiscount() bool {
	return p.Price != nil && p.OriginalPrice != nil && *p.OriginalPrice > *p.Price
}

// RatingOrZero - для сортировки по релевантности (nil считается как 0)
func (p *Product) RatingOrZero() float64 {
	if p.Rating == nil {
		return 0
	}
	return *p.Rating
}
