package categorize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrNotFound is returned by a Source that has no opinion about an item.
var ErrNotFound = errors.New("no categorization found")

// Finding is one source's vote for an item's category.
type Finding struct {
	Category   FoodCategory
	Confidence float64
}

// Source is an external authority on food categories.
type Source interface {
	Name() string
	Lookup(ctx context.Context, item string) (Finding, error)
}

// StaticSource answers from a fixed table keyed by Key(item).
type StaticSource struct {
	name       string
	table      map[string]FoodCategory
	confidence float64
}

func NewStaticSource(name string, confidence float64, table map[string]FoodCategory) *StaticSource {
	normalized := make(map[string]FoodCategory, len(table))
	for item, cat := range table {
		normalized[Key(item)] = cat
	}
	return &StaticSource{name: name, table: normalized, confidence: confidence}
}

func (s *StaticSource) Name() string { return s.name }

func (s *StaticSource) Lookup(_ context.Context, item string) (Finding, error) {
	cat, ok := s.table[Key(item)]
	if !ok {
		return Finding{}, ErrNotFound
	}
	return Finding{Category: cat, Confidence: s.confidence}, nil
}

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource queries an Open Food Facts compatible product search endpoint and maps the
// category tags of the top results onto food categories.
type HTTPSource struct {
	baseURL    string
	httpClient doer
	pageSize   int
}

func NewHTTPSource(baseURL string, httpClient doer) *HTTPSource {
	return &HTTPSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		pageSize:   5,
	}
}

func (s *HTTPSource) Name() string { return "openfoodfacts" }

type searchResponse struct {
	Count    int `json:"count"`
	Products []struct {
		ProductName    string   `json:"product_name"`
		CategoriesTags []string `json:"categories_tags"`
	} `json:"products"`
}

// tagCategories maps Open Food Facts category tag fragments onto food categories. Entries
// are checked in order so narrower tags come first.
var tagCategories = []struct {
	fragment string
	category FoodCategory
}{
	{"cheeses", Cheese},
	{"eggs", Eggs},
	{"seafood", Seafood},
	{"fishes", Seafood},
	{"meats", Meat},
	{"poultry", Meat},
	{"frozen-foods", Frozen},
	{"canned-foods", Canned},
	{"breads", Bakery},
	{"pastries", Bakery},
	{"flours", Baking},
	{"sugars", Baking},
	{"spices", Spices},
	{"condiments", Condiments},
	{"sauces", Condiments},
	{"dairies", Dairy},
	{"milks", Dairy},
	{"vegetable-oils", Oils},
	{"fats", Oils},
	{"cereals-and-potatoes", Grains},
	{"pastas", Grains},
	{"rices", Grains},
	{"legumes", Grains},
	{"beverages", Beverages},
	{"snacks", Snacks},
	{"fruits", Produce},
	{"vegetables", Produce},
}

func categoryForTags(tags []string) (FoodCategory, bool) {
	for _, tc := range tagCategories {
		for _, tag := range tags {
			if strings.Contains(tag, tc.fragment) {
				return tc.category, true
			}
		}
	}
	return "", false
}

// maxHTTPSourceConf bounds the confidence of a single HTTP lookup, reached when every
// returned product agrees.
const maxHTTPSourceConf = 0.7

func (s *HTTPSource) Lookup(ctx context.Context, item string) (Finding, error) {
	q := url.Values{}
	q.Set("search_terms", item)
	q.Set("search_simple", "1")
	q.Set("json", "1")
	q.Set("page_size", fmt.Sprint(s.pageSize))
	q.Set("fields", "product_name,categories_tags")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/cgi/search.pl?"+q.Encode(), nil)
	if err != nil {
		return Finding{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Finding{}, fmt.Errorf("failed to query %s: %w", s.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Finding{}, fmt.Errorf("failed to query %s: %s", s.Name(), resp.Status)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Finding{}, fmt.Errorf("failed to decode %s response: %w", s.Name(), err)
	}

	votes := map[FoodCategory]int{}
	total := 0
	for _, p := range body.Products {
		if cat, ok := categoryForTags(p.CategoriesTags); ok {
			votes[cat]++
			total++
		}
	}
	if total == 0 {
		return Finding{}, ErrNotFound
	}

	var best FoodCategory
	for cat, n := range votes {
		if n > votes[best] || (n == votes[best] && cat < best) {
			best = cat
		}
	}
	return Finding{
		Category:   best,
		Confidence: maxHTTPSourceConf * float64(votes[best]) / float64(total),
	}, nil
}
