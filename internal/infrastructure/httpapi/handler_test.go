package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appcart "github.com/shopcore/cartservice/internal/application/cart"
	appcheckout "github.com/shopcore/cartservice/internal/application/checkout"
	"github.com/shopcore/cartservice/internal/domain/catalog"
	"github.com/shopcore/cartservice/internal/infrastructure/id"
	"github.com/shopcore/cartservice/internal/infrastructure/memory"
	"github.com/shopcore/cartservice/internal/infrastructure/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, successRate float64) http.Handler {
	t.Helper()
	cartRepo := memory.NewCartRepository()
	catalogRepo := memory.NewCatalogRepository(
		catalog.Product{ID: 1, Name: "mouse", Price: 10, Stock: 5},
		catalog.Product{ID: 2, Name: "keyboard", Price: 5, Stock: 100},
		catalog.Product{ID: 3, Name: "hub", Price: 20, Stock: 30},
	)
	carts := appcart.NewService(cartRepo, catalogRepo)
	checkout := appcheckout.NewService(
		cartRepo,
		payment.NewSimulatedGateway(successRate),
		id.NewUUIDGenerator(),
		nil,
		nil,
		time.Minute,
	)
	return NewHandler(carts, checkout).Router()
}

func doRequest(t *testing.T, router http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}

func TestAddAndGetCart(t *testing.T) {
	router := newTestRouter(t, 1)

	rec := doRequest(t, router, http.MethodPost, "/cart/items", "u1", `{"product_id":1,"quantity":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/cart/items", "u1", `{"product_id":1,"quantity":3}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/cart", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cartResponse
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(1), resp.Items[0].ProductID)
	assert.Equal(t, 5, resp.Items[0].Quantity)
}

func TestMissingUserHeader(t *testing.T) {
	router := newTestRouter(t, 1)

	rec := doRequest(t, router, http.MethodGet, "/cart", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusCodeMapping(t *testing.T) {
	router := newTestRouter(t, 1)

	// Unknown product.
	rec := doRequest(t, router, http.MethodPost, "/cart/items", "u1", `{"product_id":99,"quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Quantity above stock.
	rec = doRequest(t, router, http.MethodPost, "/cart/items", "u1", `{"product_id":1,"quantity":50}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Non-positive quantity.
	rec = doRequest(t, router, http.MethodPost, "/cart/items", "u1", `{"product_id":1,"quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Malformed body.
	rec = doRequest(t, router, http.MethodPost, "/cart/items", "u1", `{"product_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Wrong method.
	rec = doRequest(t, router, http.MethodDelete, "/cart/clear", "u1", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestUpdateRemoveAndClear(t *testing.T) {
	router := newTestRouter(t, 1)

	doRequest(t, router, http.MethodPost, "/cart/items", "u1", `{"product_id":1,"quantity":1}`)
	doRequest(t, router, http.MethodPost, "/cart/items", "u1", `{"product_id":2,"quantity":1}`)

	rec := doRequest(t, router, http.MethodPut, "/cart/items", "u1", `{"product_id":1,"quantity":4}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/cart/items?product_id=2", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/cart", "u1", "")
	var resp cartResponse
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 4, resp.Items[0].Quantity)

	rec = doRequest(t, router, http.MethodPost, "/cart/clear", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/cart", "u1", "")
	decodeBody(t, rec, &resp)
	assert.Empty(t, resp.Items)
}

func TestRemoveRequiresProductID(t *testing.T) {
	router := newTestRouter(t, 1)

	rec := doRequest(t, router, http.MethodDelete, "/cart/items", "u1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkRemove(t *testing.T) {
	router := newTestRouter(t, 1)

	doRequest(t, router, http.MethodPost, "/cart/items", "u1", `{"product_id":1,"quantity":1}`)
	doRequest(t, router, http.MethodPost, "/cart/items", "u1", `{"product_id":2,"quantity":1}`)
	doRequest(t, router, http.MethodPost, "/cart/items", "u1", `{"product_id":3,"quantity":1}`)

	rec := doRequest(t, router, http.MethodPost, "/cart/items/bulk-remove", "u1", `{"product_ids":[1,3]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/cart", "u1", "")
	var resp cartResponse
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(2), resp.Items[0].ProductID)
}

func TestSummaryEndpoint(t *testing.T) {
	router := newTestRouter(t, 1)

	doRequest(t, router, http.MethodPost, "/cart/items", "u1", `{"product_id":1,"quantity":2}`)
	doRequest(t, router, http.MethodPost, "/cart/items", "u1", `{"product_id":2,"quantity":1}`)

	rec := doRequest(t, router, http.MethodGet, "/cart/summary", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp summaryResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, 25.0, resp.Subtotal)
	assert.Equal(t, 2.5, resp.Tax)
	assert.Equal(t, 5.0, resp.Shipping)
	assert.Equal(t, 32.5, resp.Total)
}

func TestCheckoutSuccessEmptiesCart(t *testing.T) {
	router := newTestRouter(t, 1)

	doRequest(t, router, http.MethodPost, "/cart/items", "u1", `{"product_id":1,"quantity":2}`)

	rec := doRequest(t, router, http.MethodPost, "/cart/checkout", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp checkoutResponse
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Completed)

	rec = doRequest(t, router, http.MethodGet, "/cart", "u1", "")
	var cart cartResponse
	decodeBody(t, rec, &cart)
	assert.Empty(t, cart.Items)
}

func TestCheckoutDeclineKeepsCart(t *testing.T) {
	router := newTestRouter(t, 0)

	doRequest(t, router, http.MethodPost, "/cart/items", "u1", `{"product_id":1,"quantity":2}`)

	rec := doRequest(t, router, http.MethodPost, "/cart/checkout", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp checkoutResponse
	decodeBody(t, rec, &resp)
	assert.False(t, resp.Completed)

	rec = doRequest(t, router, http.MethodGet, "/cart", "u1", "")
	var cart cartResponse
	decodeBody(t, rec, &cart)
	assert.Len(t, cart.Items, 1)
}

func TestCheckoutEmptyCartNotCompleted(t *testing.T) {
	router := newTestRouter(t, 1)

	rec := doRequest(t, router, http.MethodPost, "/cart/checkout", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp checkoutResponse
	decodeBody(t, rec, &resp)
	assert.False(t, resp.Completed)
}

func TestMergeEndpoint(t *testing.T) {
	router := newTestRouter(t, 1)

	doRequest(t, router, http.MethodPost, "/cart/items", "guest-1", `{"product_id":1,"quantity":3}`)
	doRequest(t, router, http.MethodPost, "/cart/items", "u1", `{"product_id":1,"quantity":2}`)

	rec := doRequest(t, router, http.MethodPost, "/cart/merge", "u1", `{"guest_id":"guest-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/cart", "u1", "")
	var resp cartResponse
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 5, resp.Items[0].Quantity)

	rec = doRequest(t, router, http.MethodGet, "/cart", "guest-1", "")
	decodeBody(t, rec, &resp)
	assert.Empty(t, resp.Items)
}

func TestSaveAndGetSaved(t *testing.T) {
	router := newTestRouter(t, 1)

	rec := doRequest(t, router, http.MethodGet, "/cart/saved", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp cartResponse
	decodeBody(t, rec, &resp)
	assert.Empty(t, resp.Items)

	doRequest(t, router, http.MethodPost, "/cart/items", "u1", `{"product_id":1,"quantity":2}`)
	rec = doRequest(t, router, http.MethodPost, "/cart/save", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/cart/saved", "u1", "")
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(1), resp.Items[0].ProductID)
}

func TestRecommendationsEndpoint(t *testing.T) {
	router := newTestRouter(t, 1)

	doRequest(t, router, http.MethodPost, "/cart/items", "u1", `{"product_id":1,"quantity":1}`)

	rec := doRequest(t, router, http.MethodGet, "/cart/recommendations", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string][]productResponse
	decodeBody(t, rec, &resp)
	require.NotEmpty(t, resp["products"])
	for _, p := range resp["products"] {
		assert.NotEqual(t, int64(1), p.ID)
	}
}

func TestValidateEndpoint(t *testing.T) {
	router := newTestRouter(t, 1)

	doRequest(t, router, http.MethodPost, "/cart/items", "u1", `{"product_id":1,"quantity":2}`)

	rec := doRequest(t, router, http.MethodGet, "/cart/validate", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]bool
	decodeBody(t, rec, &resp)
	assert.True(t, resp["valid"])
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, 1)

	rec := doRequest(t, router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
