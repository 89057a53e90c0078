package profile

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/knakagawa/lessonpay/internal/logging"
	"github.com/knakagawa/lessonpay/internal/validation"
)

// Handlers exposes profiles over HTTP.
type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

func (h *Handlers) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PUT("/profiles/:userId", h.upsertProfile)
	rg.GET("/profiles/:userId", h.getProfile)
}

type upsertProfileBody struct {
	DisplayName   string `json:"displayName" binding:"required"`
	Bio           string `json:"bio"`
	PayoutAccount string `json:"payoutAccount"`
}

func (h *Handlers) upsertProfile(c *gin.Context) {
	var body upsertProfileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	prof, err := h.svc.Upsert(c.Request.Context(), UpsertParams{
		UserID:        c.Param("userId"),
		DisplayName:   body.DisplayName,
		Bio:           body.Bio,
		PayoutAccount: body.PayoutAccount,
	})
	if err != nil {
		respondProfileError(c, err)
		return
	}
	c.JSON(http.StatusOK, prof)
}

func (h *Handlers) getProfile(c *gin.Context) {
	prof, err := h.svc.Get(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondProfileError(c, err)
		return
	}
	c.JSON(http.StatusOK, prof)
}

func respondProfileError(c *gin.Context, err error) {
	var verrs validation.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": verrs.Error()})
	case errors.Is(err, ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "profile not found"})
	default:
		logging.L(c.Request.Context()).Error("profile handler error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "something went wrong"})
	}
}
