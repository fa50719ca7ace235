package present

import (
	"github.com/HendryAvila/aluconfig/internal/catalog"
	"github.com/HendryAvila/aluconfig/internal/engine"
)

// ProductView is a product as shown to clients: its fields plus the page
// link, the image link and the display chips.
type ProductView struct {
	catalog.Product
	URL      string   `json:"url"`
	ImageURL string   `json:"imageUrl,omitempty"`
	Chips    []string `json:"chips"`
}

// Views builds the view of every product in products.
func Views(e *engine.Engine, products []catalog.Product) []ProductView {
	cat := e.Catalog()
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, ProductView{
			Product:  p,
			URL:      cat.ProductURL(p),
			ImageURL: cat.ImageURL(p),
			Chips:    e.Chips(p),
		})
	}
	return views
}
