package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	appcart "github.com/shopcore/cartservice/internal/application/cart"
	appcheckout "github.com/shopcore/cartservice/internal/application/checkout"
	domaincart "github.com/shopcore/cartservice/internal/domain/cart"
	"github.com/shopcore/cartservice/internal/domain/catalog"
	"github.com/shopcore/cartservice/internal/domain/stock"
)

// userIDHeader carries the authenticated user identity. Token validation
// happens upstream; this layer trusts the header.
const userIDHeader = "X-User-ID"

const idempotencyKeyHeader = "Idempotency-Key"

type Handler struct {
	carts    *appcart.Service
	checkout *appcheckout.Service
}

func NewHandler(carts *appcart.Service, checkout *appcheckout.Service) *Handler {
	return &Handler{carts: carts, checkout: checkout}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/cart", h.method(http.MethodGet, h.handleGetCart))
	mux.HandleFunc("/cart/items", h.handleItems)
	mux.HandleFunc("/cart/items/bulk-remove", h.method(http.MethodPost, h.handleBulkRemove))
	mux.HandleFunc("/cart/clear", h.method(http.MethodPost, h.handleClear))
	mux.HandleFunc("/cart/summary", h.method(http.MethodGet, h.handleSummary))
	mux.HandleFunc("/cart/validate", h.method(http.MethodGet, h.handleValidate))
	mux.HandleFunc("/cart/checkout", h.method(http.MethodPost, h.handleCheckout))
	mux.HandleFunc("/cart/merge", h.method(http.MethodPost, h.handleMerge))
	mux.HandleFunc("/cart/save", h.method(http.MethodPost, h.handleSave))
	mux.HandleFunc("/cart/saved", h.method(http.MethodGet, h.handleGetSaved))
	mux.HandleFunc("/cart/recommendations", h.method(http.MethodGet, h.handleRecommendations))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

type cartItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type cartResponse struct {
	Items []cartItem `json:"items"`
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	lines, err := h.carts.Get(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(lines))
}

func (h *Handler) handleItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleAddItem(w, r)
	case http.MethodPut:
		h.handleUpdateItem(w, r)
	case http.MethodDelete:
		h.handleRemoveItem(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req cartItem
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.carts.Add(r.Context(), userID, req.ProductID, req.Quantity); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req cartItem
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.carts.UpdateQuantity(r.Context(), userID, req.ProductID, req.Quantity); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	productID, err := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("product_id query parameter is required"))
		return
	}
	if err := h.carts.Remove(r.Context(), userID, productID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

type bulkRemoveRequest struct {
	ProductIDs []int64 `json:"product_ids"`
}

func (h *Handler) handleBulkRemove(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req bulkRemoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.carts.BulkRemove(r.Context(), userID, req.ProductIDs); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.carts.Clear(r.Context(), userID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type summaryResponse struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	s, err := h.carts.Summary(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Subtotal: s.Subtotal,
		Tax:      s.Tax,
		Shipping: s.Shipping,
		Total:    s.Total,
	})
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	valid, err := h.carts.Validate(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

type checkoutResponse struct {
	Completed bool `json:"completed"`
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	result, err := h.checkout.Checkout(r.Context(), userID, r.Header.Get(idempotencyKeyHeader))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{Completed: result.Completed})
}

type mergeRequest struct {
	GuestID string `json:"guest_id"`
}

func (h *Handler) handleMerge(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req mergeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.carts.MergeGuestCart(r.Context(), req.GuestID, userID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "merged"})
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.carts.SaveForLater(r.Context(), userID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (h *Handler) handleGetSaved(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	saved, err := h.carts.GetSaved(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if saved == nil {
		writeJSON(w, http.StatusOK, cartResponse{Items: []cartItem{}})
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(saved.Lines))
}

type productResponse struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

func (h *Handler) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	products, err := h.carts.Recommendations(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, productResponse{ID: p.ID, Name: p.Name, Price: p.Price})
	}
	writeJSON(w, http.StatusOK, map[string][]productResponse{"products": out})
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeError(w, http.StatusBadRequest, errors.New("X-User-ID header is required"))
		return "", false
	}
	return userID, true
}

func (h *Handler) method(method string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		handler(w, r)
	}
}

func toCartResponse(lines []domaincart.Line) cartResponse {
	resp := cartResponse{Items: make([]cartItem, 0, len(lines))}
	for _, l := range lines {
		resp.Items = append(resp.Items, cartItem{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return resp
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, stock.ErrInsufficient):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, domaincart.ErrUserRequired),
		errors.Is(err, domaincart.ErrInvalidProduct),
		errors.Is(err, domaincart.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
