package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nima-atelier/storefront/internal/availability"
)

const (
	// DefaultPageSize matches the storefront grid.
	DefaultPageSize = 8
	// DefaultSearchDebounce is the quiet period after the last keystroke
	// before a search fires.
	DefaultSearchDebounce = 400 * time.Millisecond
)

// LoadErrorMessage is the user-visible error text for any failed catalog
// fetch. The previous successful page stays on display.
const LoadErrorMessage = "Error loading products"

// Config tunes a Controller. Zero values fall back to defaults.
type Config struct {
	PageSize int
	// HideUnavailable switches the controller into the mode where
	// unavailable items are excluded from the paginated view.
	HideUnavailable bool
	SearchDebounce  time.Duration
}

// Controller owns filter, sort and pagination state for one search session
// and talks to the paged listing collaborator. It is framework-agnostic:
// any UI layer mutates it through the operations below and re-renders from
// Snapshot.
//
// Responses are applied in request order, not arrival order. Every fetch
// takes a monotonically increasing token; a result is discarded if a newer
// token has already been applied, so a slow fetch for an old filter state
// can never overwrite fresher results.
type Controller struct {
	lister   Lister
	pageSize int
	hide     bool
	debounce time.Duration

	mu               sync.Mutex
	products         []Product
	categories       []string
	materials        []string
	selectedCategory string
	selectedMaterial string
	searchTerm       string
	sortBy           string
	sortOrder        string
	page             int
	totalPages       int
	total            int
	loading          bool
	errMsg           string

	lastToken    uint64
	appliedToken uint64
	searchTimer  *time.Timer
}

// New creates a Controller. Call Load to run the initial query.
func New(lister Lister, cfg Config) *Controller {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.SearchDebounce <= 0 {
		cfg.SearchDebounce = DefaultSearchDebounce
	}
	return &Controller{
		lister:     lister,
		pageSize:   cfg.PageSize,
		hide:       cfg.HideUnavailable,
		debounce:   cfg.SearchDebounce,
		page:       1,
		totalPages: 1,
	}
}

// Close stops any pending debounced search.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.searchTimer != nil {
		c.searchTimer.Stop()
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	products := make([]Product, len(c.products))
	copy(products, c.products)
	categories := make([]string, len(c.categories))
	copy(categories, c.categories)
	materials := make([]string, len(c.materials))
	copy(materials, c.materials)

	return Snapshot{
		Products:         products,
		Categories:       categories,
		Materials:        materials,
		SelectedCategory: c.selectedCategory,
		SelectedMaterial: c.selectedMaterial,
		SearchTerm:       c.searchTerm,
		SortBy:           c.sortBy,
		SortOrder:        c.sortOrder,
		Page:             c.page,
		TotalPages:       c.totalPages,
		Total:            c.total,
		Loading:          c.loading,
		Err:              c.errMsg,
	}
}

// Load runs the initial unfiltered query and derives the facet lists from
// its results.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	p := c.paramsLocked(1)
	p.updateFilters = true
	c.mu.Unlock()

	return c.load(ctx, p)
}

// SelectCategory sets the category facet, resets to page 1 and refetches.
func (c *Controller) SelectCategory(ctx context.Context, value string) error {
	c.mu.Lock()
	c.selectedCategory = value
	p := c.paramsLocked(1)
	c.mu.Unlock()

	return c.load(ctx, p)
}

// SelectMaterial sets the material facet, resets to page 1 and refetches.
func (c *Controller) SelectMaterial(ctx context.Context, value string) error {
	c.mu.Lock()
	c.selectedMaterial = value
	p := c.paramsLocked(1)
	c.mu.Unlock()

	return c.load(ctx, p)
}

// SelectSort sets the sort field and order, resets to page 1 and refetches.
func (c *Controller) SelectSort(ctx context.Context, field, order string) error {
	c.mu.Lock()
	c.sortBy = field
	c.sortOrder = order
	p := c.paramsLocked(1)
	c.mu.Unlock()

	return c.load(ctx, p)
}

// UpdateSearch updates the visible search term immediately but delays the
// query until the term has been stable for the debounce period. Each call
// within the quiet period supersedes the previously scheduled fetch.
//
// The fetch runs detached from the caller's cancellation: the caller has
// usually returned to its event loop by the time the timer fires.
func (c *Controller) UpdateSearch(ctx context.Context, term string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.searchTerm = term
	if c.searchTimer != nil {
		c.searchTimer.Stop()
	}

	trimmed := strings.TrimSpace(term)
	p := c.paramsLocked(1)
	p.name = trimmed
	// Facet lists are rebuilt only on unfiltered result sets.
	p.updateFilters = trimmed == ""

	fetchCtx := context.WithoutCancel(ctx)
	c.searchTimer = time.AfterFunc(c.debounce, func() {
		_ = c.load(fetchCtx, p)
	})
}

// GoToPage fetches page n under the current filters. Pages outside
// [1, totalPages] are a no-op.
func (c *Controller) GoToPage(ctx context.Context, n int) error {
	c.mu.Lock()
	if n < 1 || n > c.totalPages {
		c.mu.Unlock()
		return nil
	}
	p := c.paramsLocked(n)
	c.mu.Unlock()

	return c.load(ctx, p)
}

// NextPage advances one page.
func (c *Controller) NextPage(ctx context.Context) error {
	c.mu.Lock()
	n := c.page + 1
	c.mu.Unlock()
	return c.GoToPage(ctx, n)
}

// PrevPage goes back one page.
func (c *Controller) PrevPage(ctx context.Context) error {
	c.mu.Lock()
	n := c.page - 1
	c.mu.Unlock()
	return c.GoToPage(ctx, n)
}

// Reload re-issues the fetch for the current page and filters, e.g. after
// a product changed elsewhere.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	p := c.paramsLocked(c.page)
	c.mu.Unlock()

	return c.load(ctx, p)
}

type loadParams struct {
	page          int
	category      string
	material      string
	name          string
	sortBy        string
	order         string
	updateFilters bool
}

func (c *Controller) paramsLocked(page int) loadParams {
	return loadParams{
		page:     page,
		category: c.selectedCategory,
		material: c.selectedMaterial,
		name:     strings.TrimSpace(c.searchTerm),
		sortBy:   c.sortBy,
		order:    c.sortOrder,
	}
}

// pageView is the outcome of one fetch: the page to display plus the item
// set facets should be derived from.
type pageView struct {
	items       []Product
	page        int
	totalPages  int
	total       int
	facetSource []Product
}

func (c *Controller) load(ctx context.Context, p loadParams) error {
	c.mu.Lock()
	c.lastToken++
	token := c.lastToken
	c.loading = true
	c.errMsg = ""
	c.mu.Unlock()

	var (
		view pageView
		err  error
	)
	if c.hide {
		view, err = c.fetchAllFiltered(ctx, p)
	} else {
		view, err = c.fetchPage(ctx, p)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Stale response: a newer request has already been applied.
	if token <= c.appliedToken {
		return nil
	}
	c.appliedToken = token
	// A newer request may still be in flight; stay loading until it lands.
	c.loading = c.lastToken > c.appliedToken

	if err != nil {
		// Keep the last successful page on display.
		c.errMsg = LoadErrorMessage
		return err
	}

	c.errMsg = ""
	c.products = view.items
	c.page = view.page
	c.totalPages = view.totalPages
	c.total = view.total
	if p.updateFilters {
		c.categories, c.materials = deriveFacets(view.facetSource)
	}
	return nil
}

func (p loadParams) query(page, limit int) Query {
	return Query{
		Category:  p.category,
		Materials: p.material,
		Name:      p.name,
		SortBy:    p.sortBy,
		Order:     p.order,
		Page:      page,
		Limit:     limit,
	}
}

// fetchPage is the simple mode: one backend page, stored verbatim.
func (c *Controller) fetchPage(ctx context.Context, p loadParams) (pageView, error) {
	res, err := c.lister.List(ctx, p.query(p.page, c.pageSize))
	if err != nil {
		return pageView{}, err
	}

	totalPages := res.TotalPages
	if totalPages < 1 {
		totalPages = 1
	}
	page := res.Page
	if page < 1 {
		page = p.page
	}

	return pageView{
		items:       res.Items,
		page:        page,
		totalPages:  totalPages,
		total:       res.Total,
		facetSource: res.Items,
	}, nil
}

// fetchAllFiltered is the availability-hiding mode. The backend paginates
// over the unfiltered set, so filtering a single backend page client-side
// would leave short pages and a wrong page count. Instead: walk every
// backend page in order, filter the full collection, then re-paginate
// locally. Every page except possibly the last is exactly pageSize long.
// Full traversal per query is the accepted cost at catalog sizes where
// correctness under filtering matters more than per-page latency.
func (c *Controller) fetchAllFiltered(ctx context.Context, p loadParams) (pageView, error) {
	first, err := c.lister.List(ctx, p.query(1, c.pageSize))
	if err != nil {
		return pageView{}, err
	}

	all := append([]Product(nil), first.Items...)
	backendPages := first.TotalPages
	if backendPages < 1 {
		backendPages = 1
	}

	// Sequential, not concurrent: bounds peak memory and keeps item order
	// deterministic.
	for page := 2; page <= backendPages; page++ {
		res, err := c.lister.List(ctx, p.query(page, c.pageSize))
		if err != nil {
			return pageView{}, err
		}
		all = append(all, res.Items...)
		if res.TotalPages > 0 {
			backendPages = res.TotalPages
		}
	}

	filtered := make([]Product, 0, len(all))
	for _, item := range all {
		if availability.Available(item.AvailabilityStatus) {
			filtered = append(filtered, item)
		}
	}

	total := len(filtered)
	totalPages := (total + c.pageSize - 1) / c.pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	page := p.page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * c.pageSize
	end := start + c.pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return pageView{
		items:       filtered[start:end],
		page:        page,
		totalPages:  totalPages,
		total:       total,
		facetSource: filtered,
	}, nil
}

// deriveFacets collects the distinct non-empty category and material values
// in first-seen order.
func deriveFacets(items []Product) (categories, materials []string) {
	seenCat := make(map[string]bool)
	seenMat := make(map[string]bool)
	for _, item := range items {
		if item.Category != "" && !seenCat[item.Category] {
			seenCat[item.Category] = true
			categories = append(categories, item.Category)
		}
		if item.Materials != "" && !seenMat[item.Materials] {
			seenMat[item.Materials] = true
			materials = append(materials, item.Materials)
		}
	}
	return categories, materials
}
