package notification

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/qline/queue-api/internal/handler"
	"github.com/qline/queue-api/internal/model"
	"github.com/qline/queue-api/internal/phone"
	"github.com/qline/queue-api/internal/repository"
	preferenceService "github.com/qline/queue-api/internal/service/preference"
	sessionService "github.com/qline/queue-api/internal/service/session"
	"github.com/qline/queue-api/pkg/logger"
	"github.com/qline/queue-api/pkg/whatsapp"
)

type Handler struct {
	preferences preferenceService.Service
	sessions    sessionService.Service
	whatsapp    whatsapp.Transport
	logs        repository.NotificationLogRepository
	logger      *logger.Logger
	// verifyToken is echoed back during the webhook subscription handshake.
	verifyToken string
}

func NewHandler(
	preferences preferenceService.Service,
	sessions sessionService.Service,
	wa whatsapp.Transport,
	logs repository.NotificationLogRepository,
	log *logger.Logger,
	verifyToken string,
) *Handler {
	return &Handler{
		preferences: preferences,
		sessions:    sessions,
		whatsapp:    wa,
		logs:        logs,
		logger:      log,
		verifyToken: verifyToken,
	}
}

// RegisterWebhookRoutes mounts the unauthenticated endpoints the messaging
// provider calls.
func (h *Handler) RegisterWebhookRoutes(r *gin.RouterGroup) {
	r.GET("/webhooks/whatsapp", h.VerifyWebhook)
	r.POST("/webhooks/whatsapp", h.InboundMessage)
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	n := r.Group("/notifications")
	{
		n.POST("/push/subscribe", h.SubscribePush)
		n.POST("/push/deny", h.DenyPush)
		n.GET("/push/subscriptions", h.ListSubscriptions)
		n.GET("/preferences", h.GetPreference)
		n.PUT("/preferences", h.UpsertPreference)
		n.GET("/logs", h.ListLogs)
		n.POST("/test", h.TestSend)
		n.POST("/sessions/cleanup", h.CleanupSessions)
	}
}

// VerifyWebhook answers the provider's subscription challenge.
func (h *Handler) VerifyWebhook(c *gin.Context) {
	if c.Query("hub.mode") == "subscribe" && c.Query("hub.verify_token") == h.verifyToken {
		c.String(http.StatusOK, c.Query("hub.challenge"))
		return
	}
	c.JSON(http.StatusForbidden, handler.NewErrorResponse("verification failed"))
}

type inboundMessageRequest struct {
	OrganizationID uuid.UUID  `json:"organization_id" binding:"required"`
	From           string     `json:"from" binding:"required,phone"`
	Body           string     `json:"body"`
	TicketID       *uuid.UUID `json:"ticket_id"`
	CustomerName   *string    `json:"customer_name"`
}

// InboundMessage opens or extends the sender's conversation window. A reply
// is sent on the same channel so the customer knows the queue updates will
// arrive here.
func (h *Handler) InboundMessage(c *gin.Context) {
	var req inboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	ctx := c.Request.Context()

	if err := h.sessions.ExtendSession(ctx, req.From); err != nil {
		if !errors.Is(err, repository.ErrSessionNotFound) {
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
			return
		}
		if _, createErr := h.sessions.CreateSession(ctx, req.From, req.OrganizationID, req.TicketID, req.CustomerName); createErr != nil {
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(createErr.Error()))
			return
		}
	}

	if err := h.whatsapp.SendText(ctx, req.From, "You're all set. We'll send your queue updates here."); err != nil {
		// The session is open either way, so the webhook still succeeds.
		h.logger.Error(err, "whatsapp confirmation failed", "phone", req.From)
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) SubscribePush(c *gin.Context) {
	var sub model.PushSubscription
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.preferences.SubscribePush(c.Request.Context(), &sub); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(sub))
}

type denyPushRequest struct {
	OrganizationID uuid.UUID `json:"organization_id" binding:"required"`
	CustomerPhone  string    `json:"customer_phone" binding:"required,phone"`
}

func (h *Handler) DenyPush(c *gin.Context) {
	var req denyPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.preferences.DenyPush(c.Request.Context(), req.OrganizationID, req.CustomerPhone); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) ListSubscriptions(c *gin.Context) {
	var ticketID *uuid.UUID
	if v := c.Query("ticket_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid ticket ID"))
			return
		}
		ticketID = &id
	}

	var orgID uuid.UUID
	if v := c.Query("organization_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid organization ID"))
			return
		}
		orgID = id
	}

	subs, err := h.preferences.ListSubscriptions(c.Request.Context(), orgID, c.Query("phone"), ticketID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(subs))
}

func (h *Handler) GetPreference(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("phone query parameter is required"))
		return
	}

	pref, err := h.preferences.Get(c.Request.Context(), phone)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}
	if pref == nil {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("preference not found"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(pref))
}

type upsertPreferenceRequest struct {
	OrganizationID uuid.UUID `json:"organization_id" binding:"required"`
	CustomerPhone  string    `json:"customer_phone" binding:"required,phone"`
	PushEnabled    bool      `json:"push_enabled"`
	PushDenied     bool      `json:"push_denied"`
}

func (h *Handler) UpsertPreference(c *gin.Context) {
	var req upsertPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	pref, err := h.preferences.Upsert(c.Request.Context(), req.OrganizationID, req.CustomerPhone, req.PushEnabled, req.PushDenied)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(pref))
}

func (h *Handler) ListLogs(c *gin.Context) {
	filters := map[string]interface{}{}
	if v := c.Query("ticket_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid ticket ID"))
			return
		}
		filters["ticket_id"] = id
	}
	if v := c.Query("phone"); v != "" {
		filters["customer_phone"] = v
	}
	if v := c.Query("channel"); v != "" {
		filters["channel"] = v
	}

	entries, err := h.logs.List(c.Request.Context(), filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(entries))
}

type testSendRequest struct {
	CustomerPhone string `json:"customer_phone" binding:"required,phone"`
	Body          string `json:"body" binding:"required"`
}

// TestSend lets an operator verify the messaging channel end to end. The
// live-session requirement applies exactly as it does for queue updates.
func (h *Handler) TestSend(c *gin.Context) {
	var req testSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	live, err := h.sessions.HasActiveSession(c.Request.Context(), req.CustomerPhone)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}
	if !live {
		c.JSON(http.StatusConflict, handler.NewErrorResponse("no live conversation window for this phone"))
		return
	}

	if err := h.whatsapp.SendText(c.Request.Context(), phone.Normalize(req.CustomerPhone), req.Body); err != nil {
		c.JSON(http.StatusBadGateway, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"sent": true}))
}

// CleanupSessions lets an operator run the expiry sweep on demand. The
// scheduled worker runs the same operation.
func (h *Handler) CleanupSessions(c *gin.Context) {
	count, err := h.sessions.CleanupExpiredSessions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"deactivated": count}))
}
