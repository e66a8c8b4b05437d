package rakuten

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/jdelacuesta/rasuto-sub002/internal/catalog"
	"github.com/jdelacuesta/rasuto-sub002/internal/domain"
)

const ServiceID = "rakuten"

const searchPath = "/services/api/IchibaItem/Search/20220601"

type Config struct {
	AppID   string
	BaseURL string
	Timeout time.Duration
	Hits    int
}

type Client struct {
	appID   string
	baseURL string
	hits    int
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://app.rakuten.co.jp"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Hits == 0 {
		cfg.Hits = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		appID:   cfg.AppID,
		baseURL: cfg.BaseURL,
		hits:    cfg.Hits,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type ichibaResponse struct {
	Count int `json:"count"`
	Items []struct {
		Item ichibaItem `json:"Item"`
	} `json:"Items"`
}

type ichibaItem struct {
	ItemCode        string   `json:"itemCode"`
	ItemName        string   `json:"itemName"`
	ItemCaption     string   `json:"itemCaption"`
	ItemPrice       int64    `json:"itemPrice"`
	ItemURL         string   `json:"itemUrl"`
	ShopName        string   `json:"shopName"`
	GenreID         string   `json:"genreId"`
	Availability    int      `json:"availability"` // 1 = в наличии
	ReviewAverage   *float64 `json:"reviewAverage"`
	ReviewCount     *int     `json:"reviewCount"`
	MediumImageURLs []struct {
		ImageURL string `json:"imageUrl"`
	} `json:"mediumImageUrls"`
}

func (c *Client) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	resp, err := c.get(ctx, url.Values{"keyword": {query}})
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(resp.Items))
	for _, wrapped := range resp.Items {
		products = append(products, c.toProduct(wrapped.Item))
	}
	return products, nil
}

func (c *Client) GetProductDetails(ctx context.Context, id string) (*domain.Product, error) {
	resp, err := c.get(ctx, url.Values{"itemCode": {id}})
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: item %s", catalog.ErrNotFound, id)
	}

	product := c.toProduct(resp.Items[0].Item)
	return &product, nil
}

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

func (c *Client) get(ctx context.Context, params url.Values) (*ichibaResponse, error) {
	params.Set("applicationId", c.appID)
	params.Set("format", "json")
	params.Set("hits", fmt.Sprintf("%d", c.hits))

	reqURL := c.baseURL + searchPath + "?" + params.Encode()

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
		var ichiba ichibaResponse
		if err := json.Unmarshal(body, &ichiba); err != nil {
			c.logger.Warn("rakuten payload decode failed",
				zap.Error(err),
				zap.ByteString("payload", body[:min(len(body), 512)]),
			)
			return nil, fmt.Errorf("%w: %v", catalog.ErrDecode, err)
		}
		return &ichiba, nil

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

func (c *Client) toProduct(item ichibaItem) domain.Product {
	price := float64(item.ItemPrice)

	product := domain.Product{
		SourceID:    item.ItemCode,
		Name:        item.ItemName,
		Description: item.ItemCaption,
		Price:       &price,
		Currency:    "JPY",
		Brand:       item.ShopName,
		Service:     ServiceID,
		InStock:     item.Availability == 1,
		URL:         item.ItemURL,
		Rating:      item.ReviewAverage,
		ReviewCount: item.ReviewCount,
	}

	// rakuten иногда отдает reviewAverage=0 при нуле отзывов - это не оценка
	if product.Rating != nil && *product.Rating == 0 {
		product.Rating = nil
	}

	for _, img := range item.MediumImageURLs {
		if img.ImageURL != "" {
			product.ImageURLs = append(product.ImageURLs, img.ImageURL)
		}
	}

	product.Category = catalog.DeriveCategory(item.ItemName)

	if product.Description == "" {
		product.Description = catalog.SynthesizeDescription(product.Name, product.Category, product.Price)
	}

	return product
}
