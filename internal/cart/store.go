package cart

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/nima-atelier/storefront/internal/kvstore"
	"github.com/nima-atelier/storefront/internal/pricing"
)

// DefaultStorageKey matches the slot the storefront has always persisted
// carts under.
const DefaultStorageKey = "nima-cart-items"

// Item is the catalog-item shape AddItem accepts. Display metadata is
// copied onto the line at add time so the cart keeps rendering after the
// product changes upstream.
type Item struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	DiscountPercent float64 `json:"discount"`
	Category        string  `json:"category"`
	Materials       string  `json:"materials"`
	Image           string  `json:"image"`
}

// LineItem is one cart row, uniquely keyed by ProductID.
type LineItem struct {
	ProductID       string  `json:"product_id"`
	Name            string  `json:"name"`
	BasePrice       float64 `json:"base_price"`
	DiscountPercent float64 `json:"discount_percent"`
	Quantity        int     `json:"quantity"`
	Category        string  `json:"category,omitempty"`
	Materials       string  `json:"materials,omitempty"`
	Image           string  `json:"image,omitempty"`
}

// State is the snapshot consumers render from. Totals are recomputed from
// the lines on every snapshot, never stored.
type State struct {
	Items         []LineItem `json:"items"`
	TotalCount    int        `json:"total_count"`
	Subtotal      float64    `json:"subtotal"`
	DiscountTotal float64    `json:"discount_total"`
	TotalPrice    float64    `json:"total_price"`
}

// Store owns the cart lines for one session and writes them through to a
// durable slot after every mutation. Storage failures are logged and
// swallowed: the in-memory state stays authoritative and the user never
// sees a storage error.
type Store struct {
	mu      sync.Mutex
	storage kvstore.Store
	key     string
	items   []LineItem
}

// NewStore loads any previously persisted cart from storage. Malformed
// persisted entries are dropped one by one; a corrupt blob or an
// unreachable backend yields an empty cart, never an error.
func NewStore(ctx context.Context, storage kvstore.Store, key string) *Store {
	s := &Store{storage: storage, key: key}
	s.items = loadItems(ctx, storage, key)
	return s
}

func loadItems(ctx context.Context, storage kvstore.Store, key string) []LineItem {
	raw, ok, err := storage.Get(ctx, key)
	if err != nil {
		log.Printf("[Cart] Failed to read persisted cart: %v", err)
		return nil
	}
	if !ok {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		log.Printf("[Cart] Discarding persisted cart, not a JSON array: %v", err)
		return nil
	}

	items := make([]LineItem, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		var line LineItem
		if err := json.Unmarshal(entry, &line); err != nil {
			log.Printf("[Cart] Dropping corrupt cart entry: %v", err)
			continue
		}
		if line.ProductID == "" || seen[line.ProductID] {
			continue
		}
		seen[line.ProductID] = true
		line.BasePrice = pricing.NormalizePrice(line.BasePrice)
		line.DiscountPercent = pricing.NormalizeDiscount(line.DiscountPercent)
		line.Quantity = pricing.NormalizeQuantity(float64(line.Quantity))
		items = append(items, line)
	}
	return items
}

// AddItem inserts a line for the item or, if one already exists, merges the
// quantities and refreshes price, discount and display fields to the values
// passed in. Items without an ID are ignored.
func (s *Store) AddItem(ctx context.Context, item Item, quantity float64) {
	if item.ID == "" {
		return
	}
	qty := pricing.NormalizeQuantity(quantity)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ProductID != item.ID {
			continue
		}
		s.items[i].Quantity += qty
		s.items[i].Name = item.Name
		s.items[i].BasePrice = pricing.NormalizePrice(item.Price)
		s.items[i].DiscountPercent = pricing.NormalizeDiscount(item.DiscountPercent)
		s.items[i].Category = item.Category
		s.items[i].Materials = item.Materials
		s.items[i].Image = item.Image
		s.persistLocked(ctx)
		return
	}

	s.items = append(s.items, LineItem{
		ProductID:       item.ID,
		Name:            item.Name,
		BasePrice:       pricing.NormalizePrice(item.Price),
		DiscountPercent: pricing.NormalizeDiscount(item.DiscountPercent),
		Quantity:        qty,
		Category:        item.Category,
		Materials:       item.Materials,
		Image:           item.Image,
	})
	s.persistLocked(ctx)
}

// RemoveItem deletes the line for id. Unknown ids are a no-op.
func (s *Store) RemoveItem(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ProductID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.persistLocked(ctx)
			return
		}
	}
}

// SetQuantity replaces the line's quantity with floor(quantity). A
// non-positive or non-finite quantity removes the line.
func (s *Store) SetQuantity(ctx context.Context, id string, quantity float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ProductID != id {
			continue
		}
		if !(quantity >= 1) { // also catches NaN
			s.items = append(s.items[:i], s.items[i+1:]...)
		} else {
			s.items[i].Quantity = pricing.NormalizeQuantity(quantity)
		}
		s.persistLocked(ctx)
		return
	}
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.persistLocked(ctx)
}

// Snapshot returns a copy of the lines plus totals folded through the
// pricing resolver.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]LineItem, len(s.items))
	copy(items, s.items)

	inputs := make([]pricing.Input, len(items))
	count := 0
	for i, line := range items {
		inputs[i] = pricing.Input{
			Price:           line.BasePrice,
			DiscountPercent: line.DiscountPercent,
			Quantity:        float64(line.Quantity),
		}
		count += line.Quantity
	}
	totals := pricing.Sum(inputs)

	return State{
		Items:         items,
		TotalCount:    count,
		Subtotal:      totals.Subtotal,
		DiscountTotal: totals.DiscountTotal,
		TotalPrice:    totals.Total,
	}
}

func (s *Store) persistLocked(ctx context.Context) {
	items := s.items
	if items == nil {
		items = []LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		log.Printf("[Cart] Failed to serialize cart: %v", err)
		return
	}
	if err := s.storage.Set(ctx, s.key, string(data)); err != nil {
		log.Printf("[Cart] Failed to persist cart: %v", err)
	}
}
