package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

func NewRouter(handlers *Handlers) http.Handler {
	r := mux.NewRouter()

	// Catalog
	r.HandleFunc("/catalog", handlers.GetCatalog).Methods(http.MethodGet)
	r.HandleFunc("/catalog/category", handlers.SelectCategory).Methods(http.MethodPost)
	r.HandleFunc("/catalog/material", handlers.SelectMaterial).Methods(http.MethodPost)
	r.HandleFunc("/catalog/sort", handlers.SelectSort).Methods(http.MethodPost)
	r.HandleFunc("/catalog/search", handlers.UpdateSearch).Methods(http.MethodPost)
	r.HandleFunc("/catalog/page", handlers.GoToPage).Methods(http.MethodPost)
	r.HandleFunc("/catalog/reload", handlers.Reload).Methods(http.MethodPost)
	r.HandleFunc("/products/{id}", handlers.GetProduct).Methods(http.MethodGet)

	// Cart
	r.HandleFunc("/cart", handlers.GetCart).Methods(http.MethodGet)
	r.HandleFunc("/cart", handlers.ClearCart).Methods(http.MethodDelete)
	r.HandleFunc("/cart/items", handlers.AddToCart).Methods(http.MethodPost)
	r.HandleFunc("/cart/items/{id}", handlers.SetCartQuantity).Methods(http.MethodPut)
	r.HandleFunc("/cart/items/{id}", handlers.RemoveFromCart).Methods(http.MethodDelete)

	// Checkout
	r.HandleFunc("/checkout/payload", handlers.BuildCheckoutPayload).Methods(http.MethodPost)

	return withLogging(r)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[API] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
