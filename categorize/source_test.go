package categorize

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSource_Lookup(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		want     Finding
		wantErr  bool
		notFound bool
	}{
		{
			name:   "unanimous products",
			status: http.StatusOK,
			body:   `{"count":2,"products":[{"product_name":"Whole milk","categories_tags":["en:dairies","en:milks"]},{"product_name":"Skim milk","categories_tags":["en:milks"]}]}`,
			want:   Finding{Category: Dairy, Confidence: 0.7},
		},
		{
			name:   "split vote",
			status: http.StatusOK,
			body:   `{"count":4,"products":[{"categories_tags":["en:cheeses"]},{"categories_tags":["en:cheeses"]},{"categories_tags":["en:cheeses"]},{"categories_tags":["en:snacks"]}]}`,
			want:   Finding{Category: Cheese, Confidence: 0.525},
		},
		{
			name:     "no recognizable tags",
			status:   http.StatusOK,
			body:     `{"count":1,"products":[{"categories_tags":["en:unknown-things"]}]}`,
			notFound: true,
		},
		{
			name:     "no products",
			status:   http.StatusOK,
			body:     `{"count":0,"products":[]}`,
			notFound: true,
		},
		{
			name:    "server error",
			status:  http.StatusBadGateway,
			body:    `bad gateway`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			status:  http.StatusOK,
			body:    `{"products":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/cgi/search.pl", r.URL.Path)
				assert.Equal(t, "whole milk", r.URL.Query().Get("search_terms"))
				assert.Equal(t, "1", r.URL.Query().Get("json"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			src := NewHTTPSource(srv.URL+"/", srv.Client())
			got, err := src.Lookup(context.Background(), "whole milk")

			switch {
			case tt.notFound:
				assert.True(t, errors.Is(err, ErrNotFound))
			case tt.wantErr:
				require.Error(t, err)
				assert.False(t, errors.Is(err, ErrNotFound))
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want.Category, got.Category)
				assert.InDelta(t, tt.want.Confidence, got.Confidence, 1e-9)
			}
		})
	}
}

func TestHTTPSource_FeedsCategorizer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":1,"products":[{"categories_tags":["en:plant-based-foods","en:legumes"]}]}`))
	}))
	defer srv.Close()

	grocer := NewStaticSource("grocer", 0.6, map[string]FoodCategory{"edamame": Grains})
	c := New(WithSources(NewHTTPSource(srv.URL, srv.Client()), grocer))

	got := c.Categorize(context.Background(), "edamame")
	assert.Equal(t, Grains, got.Category)
	assert.Equal(t, TierCorroborated, got.Source)
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)
	assert.Equal(t, []string{"grocer", "openfoodfacts"}, got.SourceNames)
}

func TestStaticSource(t *testing.T) {
	s := NewStaticSource("table", 0.5, map[string]FoodCategory{"Maple Syrup": Condiments})

	got, err := s.Lookup(context.Background(), "maple  syrup")
	require.NoError(t, err)
	assert.Equal(t, Condiments, got.Category)

	_, err = s.Lookup(context.Background(), "birch syrup")
	assert.ErrorIs(t, err, ErrNotFound)
}
