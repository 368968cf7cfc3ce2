package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cart-gateway/cartstore"
	"cart-gateway/events"
	"cart-gateway/models"
	"cart-gateway/session"
	"cart-gateway/storage"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	cart models.RemoteCart
	err  error

	addCalls    []string
	updateCalls map[string]int
	removeCalls []string
	cleared     bool
}

func (f *fakeRemote) FetchCart(ctx context.Context, token string) (models.RemoteCart, error) {
	return f.cart, f.err
}

func (f *fakeRemote) AddItem(ctx context.Context, token, productID string, quantity int) (models.RemoteCart, error) {
	f.addCalls = append(f.addCalls, productID)
	return f.cart, f.err
}

func (f *fakeRemote) UpdateItem(ctx context.Context, token, productID string, quantity int) (models.RemoteCart, error) {
	if f.updateCalls == nil {
		f.updateCalls = make(map[string]int)
	}
	f.updateCalls[productID] = quantity
	return f.cart, f.err
}

func (f *fakeRemote) RemoveItem(ctx context.Context, token, productID string) (models.RemoteCart, error) {
	f.removeCalls = append(f.removeCalls, productID)
	return f.cart, f.err
}

func (f *fakeRemote) ClearCart(ctx context.Context, token string) error {
	f.cleared = true
	return f.err
}

type fakeCounter struct {
	count     int
	source    session.CartSource
	refreshes int
}

func (f *fakeCounter) Count() int                 { return f.count }
func (f *fakeCounter) Source() session.CartSource { return f.source }
func (f *fakeCounter) Refresh()                   { f.refreshes++ }

type handlerFixture struct {
	store    *cartstore.Store
	sessions *session.Manager
	remote   *fakeRemote
	bus      *events.Bus
	counter  *fakeCounter
	router   *gin.Engine
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	kv := storage.NewMemoryStore()
	f := &handlerFixture{
		store:    cartstore.New(kv),
		sessions: session.NewManager(kv),
		remote:   &fakeRemote{},
		bus:      events.NewBus(),
		counter:  &fakeCounter{},
	}

	h := NewCartHandler(f.store, f.sessions, f.remote, f.bus, nil, f.counter)

	router := gin.New()
	router.GET("/cart", h.GetCart)
	router.GET("/cart/count", h.GetCount)
	router.POST("/cart/items", h.AddItem)
	router.PUT("/cart/items/:productId", h.UpdateItem)
	router.DELETE("/cart/items/:productId", h.RemoveItem)
	router.DELETE("/cart", h.ClearCart)
	f.router = router
	return f
}

func (f *handlerFixture) login(t *testing.T) {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "customer"})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = f.sessions.Establish(signed)
	require.NoError(t, err)
}

func (f *handlerFixture) request(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestAddItem_GuestGoesToLocalStoreAndAnnounces(t *testing.T) {
	f := newHandlerFixture(t)
	changed := f.bus.Subscribe(events.TopicLocalCartChanged)

	w := f.request(t, http.MethodPost, "/cart/items",
		`{"productId":"A","productName":"Widget","price":10,"quantity":2}`)

	require.Equal(t, http.StatusOK, w.Code)
	var cart models.LocalCart
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 20.0, cart.TotalPrice)

	assert.Empty(t, f.remote.addCalls, "guest mutations never reach the backend")
	select {
	case <-changed:
	default:
		t.Fatal("expected a cart.local.changed notification")
	}
}

func TestAddItem_DefaultsQuantityToOne(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.request(t, http.MethodPost, "/cart/items", `{"productId":"A","price":10}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.store.GetCart().Items[0].Quantity)
}

func TestAddItem_RejectsMissingProductID(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.request(t, http.MethodPost, "/cart/items", `{"price":10}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_INPUT", resp.Error)
}

func TestAddItem_AuthenticatedGoesToBackend(t *testing.T) {
	f := newHandlerFixture(t)
	f.login(t)
	f.remote.cart = models.RemoteCart{Items: []models.RemoteCartItem{{ProductID: "A", Quantity: 2}}}

	w := f.request(t, http.MethodPost, "/cart/items", `{"productId":"A","quantity":2}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"A"}, f.remote.addCalls)
	assert.Empty(t, f.store.GetCart().Items, "authenticated mutations skip the local store")
	assert.Equal(t, 1, f.counter.refreshes, "remote mutations force a count refresh")
}

func TestAddItem_BackendFailureIsSurfacedForRetry(t *testing.T) {
	f := newHandlerFixture(t)
	f.login(t)
	f.remote.err = errors.New("connection refused")

	w := f.request(t, http.MethodPost, "/cart/items", `{"productId":"A","quantity":2}`)

	require.Equal(t, http.StatusBadGateway, w.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CART_BACKEND_ERROR", resp.Error)
	assert.Contains(t, resp.Details, "connection refused")
}

func TestUpdateItem_GuestSetsQuantity(t *testing.T) {
	f := newHandlerFixture(t)
	f.store.AddItem("A", "Widget", 10, 2)

	w := f.request(t, http.MethodPut, "/cart/items/A", `{"quantity":7}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, f.store.GetCart().Items[0].Quantity)
}

func TestUpdateItem_ZeroQuantityRemovesLine(t *testing.T) {
	f := newHandlerFixture(t)
	f.store.AddItem("A", "Widget", 10, 2)

	w := f.request(t, http.MethodPut, "/cart/items/A", `{"quantity":0}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.store.GetCart().Items)
}

func TestUpdateItem_ZeroQuantityBecomesRemoteRemove(t *testing.T) {
	f := newHandlerFixture(t)
	f.login(t)

	w := f.request(t, http.MethodPut, "/cart/items/A", `{"quantity":0}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"A"}, f.remote.removeCalls)
	assert.Empty(t, f.remote.updateCalls)
}

func TestUpdateItem_MissingQuantityRejected(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.request(t, http.MethodPut, "/cart/items/A", `{}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRemoveItem_Guest(t *testing.T) {
	f := newHandlerFixture(t)
	f.store.AddItem("A", "Widget", 10, 2)

	w := f.request(t, http.MethodDelete, "/cart/items/A", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.store.GetCart().Items)
}

func TestClearCart_Authenticated(t *testing.T) {
	f := newHandlerFixture(t)
	f.login(t)

	w := f.request(t, http.MethodDelete, "/cart", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.remote.cleared)
}

func TestGetCart_RoutesBySource(t *testing.T) {
	f := newHandlerFixture(t)
	f.store.AddItem("A", "Widget", 10, 2)

	w := f.request(t, http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	var local models.LocalCart
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &local))
	assert.Equal(t, 20.0, local.TotalPrice)

	f.login(t)
	f.remote.cart = models.RemoteCart{Items: []models.RemoteCartItem{{ProductID: "Z", Quantity: 5}}}

	w = f.request(t, http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	var remote models.RemoteCart
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &remote))
	require.Len(t, remote.Items, 1)
	assert.Equal(t, "Z", remote.Items[0].ProductID)
}

func TestGetCount_NeverErrors(t *testing.T) {
	f := newHandlerFixture(t)
	f.counter.count = 4
	f.counter.source = session.SourceLocal

	w := f.request(t, http.MethodGet, "/cart/count", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.CountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Count)
	assert.Equal(t, "local", resp.Source)
}
