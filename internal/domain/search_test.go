package domain

import (
	"errors"
	"testing"
)

func TestNormalizeQuery(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"iPhone 15", "iphone 15"},
		{"  Sony   Headphones  ", "sony headphones"},
		{"\tlaptop\n", "laptop"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := NormalizeQuery(tc.in); got != tc.want {
			t.Errorf("NormalizeQuery(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSearchOptionsNormalize(t *testing.T) {
	opts := SearchOptions{}
	opts.Normalize()
	if opts.MaxResults != DefaultMaxResults {
		t.Errorf("MaxResults = %d, want default %d", opts.MaxResults, DefaultMaxResults)
	}
	if opts.Sort != SortRelevance {
		t.Errorf("Sort = %q, want %q", opts.Sort, SortRelevance)
	}

	opts = SearchOptions{MaxResults: 5, Sort: SortPriceAsc}
	opts.Normalize()
	if opts.MaxResults != 5 || opts.Sort != SortPriceAsc {
		t.Errorf("Normalize() must not touch explicit values, got %+v", opts)
	}
}

func TestSearchOptionsValidate(t *testing.T) {
	good := SearchOptions{Sort: SortPriceDesc}
	if err := good.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}

	empty := SearchOptions{}
	if err := empty.Validate(); err != nil {
		t.Errorf("Validate() error = %v, empty sort resolves to relevance later", err)
	}

	bad := SearchOptions{Sort: "cheapest"}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidSortOrder) {
		t.Errorf("Validate() error = %v, want ErrInvalidSortOrder", err)
	}
}

func TestSortOrderIsValid(t *testing.T) {
	for _, s := range []SortOrder{SortRelevance, SortPriceAsc, SortPriceDesc} {
		if !s.IsValid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if SortOrder("rating").IsValid() {
		t.Error("unknown sort order reported valid")
	}
}
