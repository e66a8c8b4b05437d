package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jdelacuesta/rasuto-sub002/internal/catalog"
	"github.com/jdelacuesta/rasuto-sub002/internal/domain"
)

// Client - настраиваемый фейковый адаптер для тестов
type Client struct {
	Products []domain.Product
	Error    error
	Delay    time.Duration

	// Errors проигрывается по одному на вызов перед Error/Products;
	// удобно для сценариев "N фейлов, потом успех"
	Errors []error

	SearchCalls  int
	DetailCalls  int
	RelatedCalls int
	LastQuery    string

	mu sync.Mutex
}

func New() *Client {
	return &Client{}
}

func (c *Client) WithProducts(products []domain.Product) *Client {
	c.Products = products
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithErrors(errs ...error) *Client {
	c.Errors = errs
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	c.mu.Lock()
	c.SearchCalls++
	c.LastQuery = query
	delay := c.Delay
	err := c.nextError()
	products := c.Products
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetProductDetails(ctx context.Context, id string) (*domain.Product, error) {
	c.mu.Lock()
	c.DetailCalls++
	err := c.nextError()
	products := c.Products
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}

	for i := range products {
		if products[i].SourceID == id {
			p := products[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
}

func (c *Client) GetRelatedProducts(ctx context.Context, id string) ([]domain.Product, error) {
	c.mu.Lock()
	c.RelatedCalls++
	err := c.nextError()
	products := c.Products
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}

	var related []domain.Product
	for _, p := range products {
		if p.SourceID != id {
			related = append(related, p)
		}
	}
	return related, nil
}

// вызывать под локом
func (c *Client) nextError() error {
	if len(c.Errors) > 0 {
		err := c.Errors[0]
		c.Errors = c.Errors[1:]
		return err
	}
	return c.Error
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SearchCalls = 0
	c.DetailCalls = 0
	c.RelatedCalls = 0
	c.LastQuery = ""
	c.Errors = nil
}
