package bestbuy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jdelacuesta/rasuto-sub002/internal/catalog"
	"github.com/jdelacuesta/rasuto-sub002/internal/domain"
)

const ServiceID = "bestbuy"

type Config struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	PageSize int
}

type Client struct {
	apiKey   string
	baseURL  string
	pageSize int
	client   *http.Client
	logger   *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.bestbuy.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		apiKey:   cfg.APIKey,
		baseURL:  cfg.BaseURL,
		pageSize: cfg.PageSize,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

type bbResponse struct {
	Total    int         `json:"total"`
	Products []bbProduct `json:"products"`
}

type bbProduct struct {
	SKU                   int64    `json:"sku"`
	Name                  string   `json:"name"`
	LongDescription       string   `json:"longDescription"`
	ShortDescription      string   `json:"shortDescription"`
	SalePrice             *float64 `json:"salePrice"`
	RegularPrice          *float64 `json:"regularPrice"`
	Image                 string   `json:"image"`
	ThumbnailImage        string   `json:"thumbnailImage"`
	Manufacturer          string   `json:"manufacturer"`
	CustomerReviewAverage *float64 `json:"customerReviewAverage"`
	CustomerReviewCount   *int     `json:"customerReviewCount"`
	OnlineAvailability    bool     `json:"onlineAvailability"`
	URL                   string   `json:"url"`
	CategoryPath          []struct {
		Name string `json:"name"`
	} `json:"categoryPath"`
}

const showFields = "sku,name,longDescription,shortDescription,salePrice,regularPrice," +
	"image,thumbnailImage,manufacturer,customerReviewAverage,customerReviewCount," +
	"onlineAvailability,url,categoryPath"

func (c *Client) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	// best buy кодирует запрос прямо в path: /v1/products(search=...)
	path := fmt.Sprintf("/v1/products(search=%s)", url.QueryEscape(query))
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(resp.Products))
	for _, p := range resp.Products {
		products = append(products, c.toProduct(p))
	}
	return products, nil
}

func (c *Client) GetProductDetails(ctx context.Context, id string) (*domain.Product, error) {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: bad sku %q", catalog.ErrNotFound, id)
	}

	path := fmt.Sprintf("/v1/products(sku=%s)", url.QueryEscape(id))
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(resp.Products) == 0 {
		return nil, fmt.Errorf("%w: sku %s", catalog.ErrNotFound, id)
	}

	product := c.toProduct(resp.Products[0])
	return &product, nil
}

// GetRelatedProducts - best effort: у best buy нет прямого related endpoint,
// приближаем вторичным поиском по первым словам названия
func (c *Client) GetRelatedProducts(ctx context.Context, id string) ([]domain.Product, error) {
	base, err := c.GetProductDetails(ctx, id)
	if err != nil {
		return nil, err
	}

	terms := catalog.RelatedSearchTerms(base.Name)
	if terms == "" {
		return nil, nil
	}

	results, err := c.SearchProducts(ctx, terms)
	if err != nil {
		return nil, err
	}

	related := results[:0]
	for _, p := range results {
		if p.SourceID != base.SourceID {
			related = append(related, p)
		}
	}
	return related, nil
}

func (c *Client) get(ctx context.Context, path string) (*bbResponse, error) {
	reqURL := fmt.Sprintf("%s%s?format=json&pageSize=%d&show=%s&apiKey=%s",
		c.baseURL, path, c.pageSize, showFields, url.QueryEscape(c.apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", catalog.ErrRequestFailed, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var bb bbResponse
		if err := json.Unmarshal(body, &bb); err != nil {
			c.logger.Warn("bestbuy payload decode failed",
				zap.Error(err),
				zap.ByteString("payload", truncate(body, 512)),
			)
			return nil, fmt.Errorf("%w: %v", catalog.ErrDecode, err)
		}
		return &bb, nil

	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, catalog.ErrUnauthorized

	case http.StatusTooManyRequests:
		return nil, catalog.ErrRateLimit

	case http.StatusNotFound:
		return nil, catalog.ErrNotFound

	default:
		return nil, fmt.Errorf("%w: status %d", catalog.ErrRequestFailed, resp.StatusCode)
	}
}

func (c *Client) toProduct(p bbProduct) domain.Product {
	product := domain.Product{
		SourceID:    strconv.FormatInt(p.SKU, 10),
		Name:        p.Name,
		Description: p.LongDescription,
		Price:       p.SalePrice,
		Currency:    "USD",
		Brand:       p.Manufacturer,
		Service:     ServiceID,
		InStock:     p.OnlineAvailability,
		Rating:      p.CustomerReviewAverage,
		ReviewCount: p.CustomerReviewCount,
		URL:         p.URL,
	}

	if product.Description == "" {
		product.Description = p.ShortDescription
	}

	// regular price показываем только как скидку
	if p.RegularPrice != nil && p.SalePrice != nil && *p.RegularPrice > *p.SalePrice {
		product.OriginalPrice = p.RegularPrice
	}

	if p.Image != "" {
		product.ImageURLs = append(product.ImageURLs, p.Image)
	}
	if p.ThumbnailImage != "" && p.ThumbnailImage != p.Image {
		product.ImageURLs = append(product.ImageURLs, p.ThumbnailImage)
	}

	if len(p.CategoryPath) > 0 {
		product.Category = p.CategoryPath[len(p.CategoryPath)-1].Name
	} else {
		product.Category = catalog.DeriveCategory(p.Name)
	}

	if product.Description == "" {
		product.Description = catalog.SynthesizeDescription(product.Name, product.Category, product.Price)
	}

	return product
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
