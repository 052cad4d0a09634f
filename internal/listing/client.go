// Package listing is the HTTP client for the paged product-listing
// endpoint. The backend is loose about field names and types (total vs
// count, totalPages vs pages, numeric ids, stringly prices), so decoding
// normalizes defensively instead of trusting the wire shape.
package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nima-atelier/storefront/internal/catalog"
)

var ErrNotFound = errors.New("product not found")

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient points at the listing backend, e.g. "https://api.example.com".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// List fetches one backend page. Implements catalog.Lister.
func (c *Client) List(ctx context.Context, q catalog.Query) (catalog.Result, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("limit", strconv.Itoa(q.Limit))
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.Materials != "" {
		params.Set("materials", q.Materials)
	}
	if q.Name != "" {
		params.Set("name", q.Name)
	}
	if q.SortBy != "" {
		params.Set("sortBy", q.SortBy)
	}
	if q.Order != "" {
		params.Set("order", q.Order)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/admin/products?"+params.Encode(), nil)
	if err != nil {
		return catalog.Result{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return catalog.Result{}, fmt.Errorf("failed to fetch products: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return catalog.Result{}, fmt.Errorf("failed to fetch products: status %d", resp.StatusCode)
	}

	var body listResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return catalog.Result{}, fmt.Errorf("failed to decode products: %w", err)
	}

	return body.normalize(q), nil
}

// Get fetches a single product by id. Backend failures and unknown ids
// both come back as ErrNotFound; the storefront has nothing useful to do
// with transport details on a detail page.
func (c *Client) Get(ctx context.Context, id string) (*catalog.Product, error) {
	if id == "" {
		return nil, errors.New("product id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/admin/products/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ErrNotFound
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrNotFound
	}

	var item wireProduct
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, ErrNotFound
	}

	product := item.normalize()
	return &product, nil
}

type listResponse struct {
	Items []wireProduct `json:"items"`
	Page  int           `json:"page"`

	// Naming variants the backend has been seen to use.
	Total      *int `json:"total"`
	Count      *int `json:"count"`
	TotalPages *int `json:"totalPages"`
	Pages      *int `json:"pages"`
}

func (r listResponse) normalize(q catalog.Query) catalog.Result {
	items := make([]catalog.Product, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, it.normalize())
	}

	total := 0
	switch {
	case r.Total != nil:
		total = *r.Total
	case r.Count != nil:
		total = *r.Count
	}

	totalPages := 0
	switch {
	case r.TotalPages != nil:
		totalPages = *r.TotalPages
	case r.Pages != nil:
		totalPages = *r.Pages
	case total > 0 && q.Limit > 0:
		totalPages = (total + q.Limit - 1) / q.Limit
	}
	if totalPages < 1 {
		totalPages = 1
	}

	page := r.Page
	if page < 1 {
		page = q.Page
	}

	return catalog.Result{
		Items:      items,
		Page:       page,
		Total:      total,
		TotalPages: totalPages,
	}
}

type wireProduct struct {
	ID          flexString  `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Materials   string      `json:"materials"`
	Price       flexFloat   `json:"price"`
	Discount    flexFloat   `json:"discount"`
	Img         flexStrings `json:"img"`
	Images      flexStrings `json:"images"`

	// Availability is free text and the backend is inconsistent about the
	// field name; first non-empty alias wins.
	Availability        string `json:"availability"`
	AvailabilityStatus  string `json:"availabilityStatus"`
	AvailabilityStatus2 string `json:"availabilitystatus"`
	AvailabilityStatus3 string `json:"availability_status"`
}

func (p wireProduct) normalize() catalog.Product {
	images := []string(p.Img)
	if len(images) == 0 {
		images = []string(p.Images)
	}

	status := p.Availability
	for _, alias := range []string{p.AvailabilityStatus, p.AvailabilityStatus2, p.AvailabilityStatus3} {
		if status != "" {
			break
		}
		status = alias
	}

	return catalog.Product{
		ID:                 string(p.ID),
		Name:               p.Name,
		Description:        p.Description,
		Category:           p.Category,
		Materials:          p.Materials,
		Price:              float64(p.Price),
		DiscountPercent:    float64(p.Discount),
		AvailabilityStatus: status,
		Images:             images,
	}
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(data)
	return nil
}

// flexFloat accepts a JSON number or a numeric string; anything else
// decodes to zero. The pricing resolver clamps further downstream.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

// flexStrings accepts a single string or an array of strings.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = nil
		return nil
	}
	if data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*f = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = nil
		return nil
	}
	*f = []string{s}
	return nil
}
