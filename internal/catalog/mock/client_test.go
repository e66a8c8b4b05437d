package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/jdelacuesta/rasuto-sub002/internal/catalog"
	"github.com/jdelacuesta/rasuto-sub002/internal/domain"
)

func TestClient_SearchProducts(t *testing.T) {
	client := New().WithProducts([]domain.Product{
		{SourceID: "1", Name: "Test Product"},
	})

	products, err := client.SearchProducts(context.Background(), "test")
	if err != nil {
		t.Fatalf("SearchProducts() error = %v", err)
	}
	if len(products) != 1 {
		t.Errorf("got %d products, want 1", len(products))
	}
	if client.SearchCalls != 1 {
		t.Errorf("SearchCalls = %d, want 1", client.SearchCalls)
	}
	if client.LastQuery != "test" {
		t.Errorf("LastQuery = %q, want test", client.LastQuery)
	}
}

func TestClient_ErrorsPlayedInOrder(t *testing.T) {
	scripted := errors.New("transient")
	client := New().
		WithProducts([]domain.Product{{SourceID: "1"}}).
		WithErrors(scripted)

	ctx := context.Background()

	if _, err := client.SearchProducts(ctx, "q"); !errors.Is(err, scripted) {
		t.Errorf("first call error = %v, want scripted error", err)
	}
	if _, err := client.SearchProducts(ctx, "q"); err != nil {
		t.Errorf("second call error = %v, want success after script exhausted", err)
	}
}

func TestClient_GetProductDetails(t *testing.T) {
	client := New().WithProducts([]domain.Product{
		{SourceID: "1", Name: "One"},
		{SourceID: "2", Name: "Two"},
	})

	p, err := client.GetProductDetails(context.Background(), "2")
	if err != nil {
		t.Fatalf("GetProductDetails() error = %v", err)
	}
	if p.Name != "Two" {
		t.Errorf("Name = %q, want Two", p.Name)
	}

	if _, err := client.GetProductDetails(context.Background(), "missing"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestClient_Reset(t *testing.T) {
	client := New().WithProducts([]domain.Product{{SourceID: "1"}})

	client.SearchProducts(context.Background(), "q")
	client.Reset()

	if client.SearchCalls != 0 || client.LastQuery != "" {
		t.Errorf("Reset() did not clear call state: calls=%d query=%q", client.SearchCalls, client.LastQuery)
	}
}
