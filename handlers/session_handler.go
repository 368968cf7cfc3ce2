package handlers

import (
	"context"
	"net/http"

	"cart-gateway/events"
	"cart-gateway/merge"
	"cart-gateway/models"
	"cart-gateway/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Merger runs the guest-to-authenticated cart reconciliation.
type Merger interface {
	MergeGuestCart(ctx context.Context, token, role string) merge.Report
}

// SessionHandler establishes and tears down the session the cart routing
// keys off.
type SessionHandler struct {
	sessions *session.Manager
	merger   Merger
	bus      *events.Bus
	log      *logrus.Entry
}

func NewSessionHandler(sessions *session.Manager, merger Merger, bus *events.Bus) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		merger:   merger,
		bus:      bus,
		log:      logrus.WithField("component", "session-handler"),
	}
}

// Establish handles POST /session. The merge runs before the session is
// announced so dependent views re-derive from a remote cart that already
// contains the guest items. A partial merge becomes a warning in the
// response, never a failed login.
func (h *SessionHandler) Establish(c *gin.Context) {
	var req models.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "INVALID_INPUT",
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	claims, err := h.sessions.Establish(req.Token)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "INVALID_TOKEN",
			Message: "The bearer token could not be decoded",
			Details: err.Error(),
		})
		return
	}

	report := h.merger.MergeGuestCart(c.Request.Context(), req.Token, claims.Role)
	h.bus.Publish(events.TopicSessionEstablished)

	h.log.WithField("role", claims.Role).Info("session established")

	resp := models.SessionResponse{
		Role:        claims.Role,
		MergedItems: report.Merged,
	}
	if report.Partial() {
		resp.Warning = "Some items could not be merged into your cart"
	}
	c.JSON(http.StatusOK, resp)
}

// Teardown handles DELETE /session. With the token gone the guest cart is
// authoritative again, so the change is announced for the count to
// re-derive.
func (h *SessionHandler) Teardown(c *gin.Context) {
	h.sessions.Clear()
	h.bus.Publish(events.TopicLocalCartChanged)
	c.Status(http.StatusNoContent)
}
