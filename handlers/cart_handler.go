package handlers

import (
	"context"
	"net/http"

	"cart-gateway/cartstore"
	"cart-gateway/events"
	"cart-gateway/models"
	"cart-gateway/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RemoteCartAPI is what the handler needs from the cart backend client.
type RemoteCartAPI interface {
	FetchCart(ctx context.Context, token string) (models.RemoteCart, error)
	AddItem(ctx context.Context, token, productID string, quantity int) (models.RemoteCart, error)
	UpdateItem(ctx context.Context, token, productID string, quantity int) (models.RemoteCart, error)
	RemoveItem(ctx context.Context, token, productID string) (models.RemoteCart, error)
	ClearCart(ctx context.Context, token string) error
}

// Notifier announces guest cart changes to sibling instances. Nil when the
// cross-instance bridge is disabled.
type Notifier interface {
	PublishCartChanged() error
}

// Counter exposes the aggregator's current state.
type Counter interface {
	Count() int
	Source() session.CartSource
	Refresh()
}

// CartHandler serves the cart operations, routing each request to the local
// guest cart or the remote backend cart depending on the session state. The
// source is resolved once per request, never per call site.
type CartHandler struct {
	store    *cartstore.Store
	sessions *session.Manager
	remote   RemoteCartAPI
	bus      *events.Bus
	notifier Notifier
	counter  Counter
	log      *logrus.Entry
}

func NewCartHandler(store *cartstore.Store, sessions *session.Manager, remote RemoteCartAPI, bus *events.Bus, notifier Notifier, counter Counter) *CartHandler {
	return &CartHandler{
		store:    store,
		sessions: sessions,
		remote:   remote,
		bus:      bus,
		notifier: notifier,
		counter:  counter,
		log:      logrus.WithField("component", "cart-handler"),
	}
}

// announceLocalChange tells this process and sibling instances that the
// guest cart changed. The store itself never announces; its callers do.
func (h *CartHandler) announceLocalChange() {
	h.bus.Publish(events.TopicLocalCartChanged)
	if h.notifier != nil {
		if err := h.notifier.PublishCartChanged(); err != nil {
			h.log.WithError(err).Warn("failed to notify sibling instances")
		}
	}
}

func backendError(c *gin.Context, err error) {
	c.JSON(http.StatusBadGateway, models.ErrorResponse{
		Error:   "CART_BACKEND_ERROR",
		Message: "The cart backend could not complete the operation, please retry",
		Details: err.Error(),
	})
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	if h.sessions.Source() == session.SourceRemote {
		token, _ := h.sessions.Token()
		cart, err := h.remote.FetchCart(c.Request.Context(), token)
		if err != nil {
			backendError(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
		return
	}
	c.JSON(http.StatusOK, h.store.GetCart())
}

// GetCount handles GET /cart/count. The count never errors; it degrades to
// the local sum when the backend is unreachable.
func (h *CartHandler) GetCount(c *gin.Context) {
	c.JSON(http.StatusOK, models.CountResponse{
		Count:  h.counter.Count(),
		Source: h.counter.Source().String(),
	})
}

// AddItem handles POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req models.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "INVALID_INPUT",
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if h.sessions.Source() == session.SourceRemote {
		token, _ := h.sessions.Token()
		cart, err := h.remote.AddItem(c.Request.Context(), token, req.ProductID, req.Quantity)
		if err != nil {
			backendError(c, err)
			return
		}
		h.counter.Refresh()
		c.JSON(http.StatusOK, cart)
		return
	}

	cart := h.store.AddItem(req.ProductID, req.ProductName, req.Price, req.Quantity)
	h.announceLocalChange()
	c.JSON(http.StatusOK, cart)
}

// UpdateItem handles PUT /cart/items/{productId}. A quantity of zero
// removes the line.
func (h *CartHandler) UpdateItem(c *gin.Context) {
	productID := c.Param("productId")

	var req models.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "INVALID_INPUT",
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}
	quantity := *req.Quantity

	if h.sessions.Source() == session.SourceRemote {
		token, _ := h.sessions.Token()
		var cart models.RemoteCart
		var err error
		if quantity < 1 {
			cart, err = h.remote.RemoveItem(c.Request.Context(), token, productID)
		} else {
			cart, err = h.remote.UpdateItem(c.Request.Context(), token, productID, quantity)
		}
		if err != nil {
			backendError(c, err)
			return
		}
		h.counter.Refresh()
		c.JSON(http.StatusOK, cart)
		return
	}

	cart := h.store.UpdateItemQuantity(productID, quantity)
	h.announceLocalChange()
	c.JSON(http.StatusOK, cart)
}

// RemoveItem handles DELETE /cart/items/{productId}
func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID := c.Param("productId")

	if h.sessions.Source() == session.SourceRemote {
		token, _ := h.sessions.Token()
		cart, err := h.remote.RemoveItem(c.Request.Context(), token, productID)
		if err != nil {
			backendError(c, err)
			return
		}
		h.counter.Refresh()
		c.JSON(http.StatusOK, cart)
		return
	}

	cart := h.store.RemoveItem(productID)
	h.announceLocalChange()
	c.JSON(http.StatusOK, cart)
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	if h.sessions.Source() == session.SourceRemote {
		token, _ := h.sessions.Token()
		if err := h.remote.ClearCart(c.Request.Context(), token); err != nil {
			backendError(c, err)
			return
		}
		h.counter.Refresh()
		c.JSON(http.StatusOK, models.RemoteCart{Items: []models.RemoteCartItem{}})
		return
	}

	cart := h.store.ClearCart()
	h.announceLocalChange()
	c.JSON(http.StatusOK, cart)
}
