package catalog

import "context"

// Product is one catalog entry as the backend reports it. The controller
// holds read-only copies for the current page; display-only fields ride
// along untouched.
type Product struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Description        string   `json:"description,omitempty"`
	Category           string   `json:"category,omitempty"`
	Materials          string   `json:"materials,omitempty"`
	Price              float64  `json:"price"`
	DiscountPercent    float64  `json:"discount"`
	AvailabilityStatus string   `json:"availability,omitempty"`
	Images             []string `json:"img,omitempty"`
}

// Query is the request shape of the paged listing endpoint.
type Query struct {
	Category  string
	Materials string
	Name      string
	SortBy    string
	Order     string
	Page      int
	Limit     int
}

// Result is one backend page.
type Result struct {
	Items      []Product
	Page       int
	Total      int
	TotalPages int
}

// Lister is the external paged listing collaborator.
type Lister interface {
	List(ctx context.Context, q Query) (Result, error)
}

// Snapshot is the reactive state consumers render from.
type Snapshot struct {
	Products         []Product `json:"products"`
	Categories       []string  `json:"categories"`
	Materials        []string  `json:"materials"`
	SelectedCategory string    `json:"selected_category"`
	SelectedMaterial string    `json:"selected_material"`
	SearchTerm       string    `json:"search_term"`
	SortBy           string    `json:"sort_by"`
	SortOrder        string    `json:"sort_order"`
	Page             int       `json:"page"`
	TotalPages       int       `json:"total_pages"`
	Total            int       `json:"total"`
	Loading          bool      `json:"loading"`
	Err              string    `json:"error"`
}
