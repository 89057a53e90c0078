package escrow

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/knakagawa/lessonpay/internal/logging"
	"github.com/knakagawa/lessonpay/internal/request"
	"github.com/knakagawa/lessonpay/internal/validation"
)

// Handlers exposes the escrow coordinator over HTTP.
type Handlers struct {
	coord *Coordinator
}

func NewHandlers(coord *Coordinator) *Handlers {
	return &Handlers{coord: coord}
}

func (h *Handlers) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/escrow/initiate", h.initiate)
	rg.POST("/escrow/capture", h.capture)
	rg.POST("/escrow/cancel", h.cancel)
}

type transitionBody struct {
	RequestID string `json:"requestId" binding:"required"`
	ActorID   string `json:"actorId" binding:"required"`
}

func (h *Handlers) initiate(c *gin.Context) {
	var body transitionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	result, err := h.coord.Initiate(c.Request.Context(), body.RequestID, body.ActorID)
	if err != nil {
		respondEscrowError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) capture(c *gin.Context) {
	var body transitionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	req, err := h.coord.Capture(c.Request.Context(), body.RequestID, body.ActorID)
	if err != nil {
		respondEscrowError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handlers) cancel(c *gin.Context) {
	var body transitionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	req, err := h.coord.Cancel(c.Request.Context(), body.RequestID, body.ActorID)
	if err != nil {
		respondEscrowError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func respondEscrowError(c *gin.Context, err error) {
	var (
		verrs validation.ValidationErrors
		gwErr *GatewayError
	)
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": verrs.Error()})
	case errors.Is(err, request.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "request not found"})
	case errors.Is(err, request.ErrStatusConflict):
		c.JSON(http.StatusBadRequest, gin.H{"error": "status_conflict", "message": "request is not in the required status"})
	case errors.Is(err, ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "actor is not permitted to perform this transition"})
	case errors.Is(err, ErrNoPayoutAccount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no_payout_account", "message": "provider has no payout account on file"})
	case errors.As(err, &gwErr):
		logging.L(c.Request.Context()).Error("payment gateway error", "code", gwErr.Code, "error", gwErr)
		c.JSON(http.StatusBadGateway, gin.H{"error": "gateway_error", "message": "payment provider rejected the operation"})
	default:
		logging.L(c.Request.Context()).Error("escrow handler error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "something went wrong"})
	}
}
