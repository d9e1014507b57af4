package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mpetrov/cartkeeper/internal/domain"
	"github.com/mpetrov/cartkeeper/internal/storage"
	"github.com/mpetrov/cartkeeper/internal/syncer"
)

// CheckoutPublisher hands the cart snapshot to the downstream checkout
// pipeline. Defined here because this package is the consumer.
type CheckoutPublisher interface {
	Publish(ctx context.Context, identity string, items domain.Cart) (string, error)
}

// CartHandler is the UI-facing surface of the cart engine.
type CartHandler struct {
	cart     *syncer.Syncer
	store    storage.CartStore
	checkout CheckoutPublisher
	log      *zap.Logger
	sfg      singleflight.Group // collapses concurrent admin reads per identity
}

func NewCartHandler(cart *syncer.Syncer, store storage.CartStore, checkout CheckoutPublisher, log *zap.Logger) *CartHandler {
	return &CartHandler{
		cart:     cart,
		store:    store,
		checkout: checkout,
		log:      log,
	}
}

// Routes mounts the cart API.
func (h *CartHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddItem)
		r.Put("/items/{product_id}", h.UpdateQuantity)
		r.Delete("/items/{product_id}", h.RemoveItem)
	})
	r.Post("/checkout", h.Checkout)
	r.Get("/carts/{identity}", h.GetStoredCart)
	return r
}

type AddItemRequestDTO struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Stock     int     `json:"stock"`
	Image     string  `json:"image"`
	VendorID  string  `json:"vendor_id"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponseDTO struct {
	Identity string      `json:"identity"`
	Items    domain.Cart `json:"items"`
	Subtotal float64     `json:"subtotal"`
}

type CheckoutResponseDTO struct {
	CheckoutID  string  `json:"checkout_id"`
	TotalAmount float64 `json:"total_amount"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondCart(w, http.StatusOK, h.cart.Identity(), h.cart.Items())
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be positive")
		return
	}
	if req.Stock < 0 {
		respondError(w, http.StatusBadRequest, "invalid_stock", "stock must not be negative")
		return
	}
	if req.Price < 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "price must not be negative")
		return
	}

	items := h.cart.AddItem(r.Context(), domain.LineItem{
		ProductID: req.ProductID,
		Name:      req.Name,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Stock:     req.Stock,
		Image:     req.Image,
		VendorID:  req.VendorID,
	})

	respondCart(w, http.StatusCreated, h.cart.Identity(), items)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// Zero removes the item; the reducer treats them the same.
	items := h.cart.UpdateQuantity(r.Context(), productID, req.Quantity)
	respondCart(w, http.StatusOK, h.cart.Identity(), items)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	items := h.cart.RemoveItem(r.Context(), productID)
	respondCart(w, http.StatusOK, h.cart.Identity(), items)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	items := h.cart.ClearCart(r.Context())
	respondCart(w, http.StatusOK, h.cart.Identity(), items)
}

// Checkout publishes the current snapshot and clears the cart, mirroring the
// storefront flow: the snapshot leaves the engine, payment happens elsewhere.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	items := h.cart.Items()
	if len(items) == 0 {
		respondError(w, http.StatusBadRequest, "empty_cart", "cannot check out an empty cart")
		return
	}

	checkoutID, err := h.checkout.Publish(r.Context(), h.cart.Identity(), items)
	if err != nil {
		h.log.Error("checkout publish failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "checkout_unavailable", "failed to hand off cart snapshot")
		return
	}

	h.cart.ClearCart(r.Context())
	respondJSON(w, http.StatusOK, CheckoutResponseDTO{
		CheckoutID:  checkoutID,
		TotalAmount: items.Subtotal(),
	})
}

// GetStoredCart reads any identity's persisted partition directly from storage;
// the admin dashboard uses it to inspect carts other than the active one.
func (h *CartHandler) GetStoredCart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "identity")
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_identity", "identity is required")
		return
	}

	v, err, _ := h.sfg.Do(id, func() (interface{}, error) {
		return h.store.Load(r.Context(), id)
	})
	if err != nil {
		if errors.Is(err, storage.ErrCartNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "no stored cart for identity")
			return
		}
		h.log.Error("stored cart read failed", zap.String("identity", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to read stored cart")
		return
	}

	respondCart(w, http.StatusOK, id, v.(domain.Cart))
}

func respondCart(w http.ResponseWriter, status int, identity string, items domain.Cart) {
	if items == nil {
		items = domain.Cart{}
	}
	respondJSON(w, status, CartResponseDTO{
		Identity: identity,
		Items:    items,
		Subtotal: items.Subtotal(),
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
