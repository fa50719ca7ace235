// Package catalog holds the product records and the facet schema the
// configurator narrows over.
//
// Both are loaded once at startup, either from the YAML files embedded in
// the binary or from files on disk, and are read-only afterwards.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default link prefixes for product pages and images.
const (
	DefaultBaseURL   = "https://fabricadoaluminio.com.br/produto/"
	DefaultImageBase = "images/"
)

// ErrInvalidCatalog is wrapped by every catalog validation failure.
var ErrInvalidCatalog = errors.New("invalid catalog")

//go:embed data/products.yaml
var embeddedProducts []byte

var validate = validator.New(validator.WithRequiredStructEnabled())

// Catalog is an ordered, immutable list of products.
type Catalog struct {
	products  []Product
	byID      map[string]int
	baseURL   string
	imageBase string
}

// New validates products and builds a Catalog preserving their order.
func New(products []Product) (*Catalog, error) {
	c := &Catalog{
		products:  make([]Product, len(products)),
		byID:      make(map[string]int, len(products)),
		baseURL:   DefaultBaseURL,
		imageBase: DefaultImageBase,
	}
	copy(c.products, products)

	var problems []string
	for i, p := range c.products {
		if err := validate.Struct(p); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				for _, fe := range verrs {
					problems = append(problems, fmt.Sprintf("product %d (%s): %s failed %q", i, p.ID, fe.Field(), fe.Tag()))
				}
			} else {
				problems = append(problems, fmt.Sprintf("product %d: %v", i, err))
			}
			continue
		}
		if _, dup := c.byID[p.ID]; dup {
			problems = append(problems, fmt.Sprintf("product %d: duplicate id %q", i, p.ID))
			continue
		}
		c.byID[p.ID] = i
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(problems, "; "))
	}
	return c, nil
}

// Parse decodes a YAML product list.
func Parse(data []byte) (*Catalog, error) {
	var products []Product
	if err := yaml.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("catalog: decode products: %w", err)
	}
	return New(products)
}

// Load reads a product list from path. An empty path loads the built-in
// catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(embeddedProducts)
}

// WithLinks returns a copy of the catalog that builds product and image
// links from the given prefixes. Empty prefixes keep the current ones.
func (c *Catalog) WithLinks(baseURL, imageBase string) *Catalog {
	cp := *c
	if baseURL != "" {
		cp.baseURL = baseURL
	}
	if imageBase != "" {
		cp.imageBase = imageBase
	}
	return &cp
}

// Products returns the products in catalog order. The slice is a copy.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Each calls fn for every product in catalog order until fn returns false.
func (c *Catalog) Each(fn func(Product) bool) {
	for _, p := range c.products {
		if !fn(p) {
			return
		}
	}
}

// Len returns the number of products.
func (c *Catalog) Len() int { return len(c.products) }

// Lookup finds a product by id.
func (c *Catalog) Lookup(id string) (Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

// ProductURL is the public page of p.
func (c *Catalog) ProductURL(p Product) string {
	return c.baseURL + p.Slug
}

// ImageURL is the preview image of p, or "" when it has none.
func (c *Catalog) ImageURL(p Product) string {
	if p.Image == "" {
		return ""
	}
	return c.imageBase + p.Image
}
