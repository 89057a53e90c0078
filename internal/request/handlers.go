package request

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/knakagawa/lessonpay/internal/logging"
	"github.com/knakagawa/lessonpay/internal/validation"
)

// Handlers exposes the request service over HTTP.
type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

func (h *Handlers) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/requests", h.createRequest)
	rg.GET("/requests", h.listRequests)
	rg.GET("/requests/:id", h.getRequest)
	rg.POST("/requests/:id/accept", h.acceptRequest)
}

type createRequestBody struct {
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description"`
	BudgetAmount int64  `json:"budgetAmount" binding:"required"`
	RequesterID  string `json:"requesterId" binding:"required"`
}

func (h *Handlers) createRequest(c *gin.Context) {
	var body createRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	req, err := h.svc.Create(c.Request.Context(), CreateParams{
		Title:        body.Title,
		Description:  body.Description,
		BudgetAmount: body.BudgetAmount,
		RequesterID:  body.RequesterID,
	})
	if err != nil {
		respondRequestError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *Handlers) getRequest(c *gin.Context) {
	req, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondRequestError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handlers) listRequests(c *gin.Context) {
	userID := c.Query("userId")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	reqs, err := h.svc.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		respondRequestError(c, err)
		return
	}
	if reqs == nil {
		reqs = []*Request{}
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs, "count": len(reqs)})
}

type acceptRequestBody struct {
	ProviderID string `json:"providerId" binding:"required"`
}

func (h *Handlers) acceptRequest(c *gin.Context) {
	var body acceptRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	req, err := h.svc.Accept(c.Request.Context(), c.Param("id"), body.ProviderID)
	if err != nil {
		respondRequestError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func respondRequestError(c *gin.Context, err error) {
	var verrs validation.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": verrs.Error()})
	case errors.Is(err, ErrRequestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "request not found"})
	case errors.Is(err, ErrStatusConflict):
		c.JSON(http.StatusBadRequest, gin.H{"error": "status_conflict", "message": "request is not in the required status"})
	case errors.Is(err, ErrSelfAccept):
		c.JSON(http.StatusBadRequest, gin.H{"error": "self_accept", "message": "requester cannot accept their own request"})
	case errors.Is(err, ErrInvalidBudget):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_budget", "message": "budget amount must be positive"})
	default:
		logging.L(c.Request.Context()).Error("request handler error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "something went wrong"})
	}
}
