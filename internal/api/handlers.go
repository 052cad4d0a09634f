package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nima-atelier/storefront/internal/cart"
	"github.com/nima-atelier/storefront/internal/catalog"
	"github.com/nima-atelier/storefront/internal/checkout"
	"github.com/nima-atelier/storefront/internal/listing"
)

// ProductGetter fetches a single product for the detail route. Satisfied
// by listing.Client.
type ProductGetter interface {
	Get(ctx context.Context, id string) (*catalog.Product, error)
}

// Handlers exposes the catalog controller and cart store as JSON
// endpoints. Every mutating route responds with the fresh snapshot so thin
// clients can re-render without a second round trip.
type Handlers struct {
	controller *catalog.Controller
	cartStore  *cart.Store
	products   ProductGetter
}

func NewHandlers(controller *catalog.Controller, cartStore *cart.Store, products ProductGetter) *Handlers {
	return &Handlers{
		controller: controller,
		cartStore:  cartStore,
		products:   products,
	}
}

// Catalog Handlers

func (h *Handlers) GetCatalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.controller.Snapshot())
}

func (h *Handlers) SelectCategory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Fetch failures surface through the snapshot's error field, not as an
	// HTTP error: the last-known-good page stays on display.
	_ = h.controller.SelectCategory(r.Context(), body.Value)
	respondJSON(w, http.StatusOK, h.controller.Snapshot())
}

func (h *Handlers) SelectMaterial(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	_ = h.controller.SelectMaterial(r.Context(), body.Value)
	respondJSON(w, http.StatusOK, h.controller.Snapshot())
}

func (h *Handlers) SelectSort(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Field string `json:"field"`
		Order string `json:"order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	_ = h.controller.SelectSort(r.Context(), body.Field, body.Order)
	respondJSON(w, http.StatusOK, h.controller.Snapshot())
}

func (h *Handlers) UpdateSearch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Term string `json:"term"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Returns immediately; the query fires after the quiet period.
	h.controller.UpdateSearch(r.Context(), body.Term)
	respondJSON(w, http.StatusOK, h.controller.Snapshot())
}

func (h *Handlers) GoToPage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Page int `json:"page"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	_ = h.controller.GoToPage(r.Context(), body.Page)
	respondJSON(w, http.StatusOK, h.controller.Snapshot())
}

func (h *Handlers) Reload(w http.ResponseWriter, r *http.Request) {
	_ = h.controller.Reload(r.Context())
	respondJSON(w, http.StatusOK, h.controller.Snapshot())
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	product, err := h.products.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, listing.ErrNotFound) {
			http.Error(w, "Product not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.cartStore.Snapshot())
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Item     cart.Item `json:"item"`
		Quantity float64   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.Item.ID == "" {
		http.Error(w, "item id is required", http.StatusBadRequest)
		return
	}
	if body.Quantity == 0 {
		body.Quantity = 1
	}

	h.cartStore.AddItem(r.Context(), body.Item, body.Quantity)
	respondJSON(w, http.StatusOK, h.cartStore.Snapshot())
}

func (h *Handlers) SetCartQuantity(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Quantity float64 `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.cartStore.SetQuantity(r.Context(), mux.Vars(r)["id"], body.Quantity)
	respondJSON(w, http.StatusOK, h.cartStore.Snapshot())
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	h.cartStore.RemoveItem(r.Context(), mux.Vars(r)["id"])
	respondJSON(w, http.StatusOK, h.cartStore.Snapshot())
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.cartStore.Clear(r.Context())
	respondJSON(w, http.StatusOK, h.cartStore.Snapshot())
}

// Checkout Handlers

func (h *Handlers) BuildCheckoutPayload(w http.ResponseWriter, r *http.Request) {
	state := h.cartStore.Snapshot()
	payload, err := checkout.Build(state.Items)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			http.Error(w, "No items to checkout", http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, payload)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
