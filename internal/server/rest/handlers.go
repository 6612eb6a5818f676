package rest

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

// ClaimService is the subset of services.ClaimService the handlers use.
type ClaimService interface {
	GenerateToken(ctx context.Context, participantID int64, tokenType string, expiry time.Duration) services.GenerateResult
	ValidateToken(ctx context.Context, token, ip string) services.ValidateResult
	UseToken(ctx context.Context, token, ip string) services.ValidateResult
	ExtendToken(ctx context.Context, token string, additional time.Duration) services.ExtendResult
	CleanupExpiredTokens(ctx context.Context, olderThanDays int) services.CleanupResult
	GetStatistics(ctx context.Context) services.StatisticsResult
}

type Handlers struct {
	svc ClaimService
}

func NewHandlers(svc ClaimService) *Handlers {
	return &Handlers{svc: svc}
}

// statusFor maps a failed outcome to an HTTP status.
func statusFor(o services.Outcome) int {
	switch {
	case o.Blocked:
		return http.StatusTooManyRequests
	case o.Expired:
		return http.StatusGone
	}
	switch o.Reason {
	case services.ReasonTokenNotFound, services.ReasonNotExtendable:
		return http.StatusNotFound
	case services.ReasonAlreadyUsed:
		return http.StatusConflict
	case services.ReasonInvalidFormat, services.ReasonIneligible, services.ReasonBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respond(c *gin.Context, o services.Outcome, okStatus int, body any) {
	if o.Success {
		c.JSON(okStatus, body)
		return
	}
	c.JSON(statusFor(o), body)
}

// maxSeconds is the largest second count that still fits a time.Duration.
const maxSeconds = math.MaxInt64 / int64(time.Second)

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, services.Outcome{Error: "invalid request", Reason: services.ReasonBadRequest})
}

// Generate handles POST /api/v1/tokens.
func (h *Handlers) Generate(c *gin.Context) {
	var req struct {
		ParticipantID int64  `json:"participant_id" binding:"required"`
		TokenType     string `json:"token_type"`
		ExpirySeconds int64  `json:"expiry_seconds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ExpirySeconds < 0 || req.ExpirySeconds > maxSeconds {
		badRequest(c)
		return
	}

	res := h.svc.GenerateToken(c.Request.Context(), req.ParticipantID, req.TokenType, time.Duration(req.ExpirySeconds)*time.Second)

	status := http.StatusCreated
	if res.Existing {
		status = http.StatusOK
	}
	respond(c, res.Outcome, status, res)
}

// Validate handles GET /api/v1/claims/:token.
func (h *Handlers) Validate(c *gin.Context) {
	res := h.svc.ValidateToken(c.Request.Context(), c.Param("token"), c.ClientIP())
	respond(c, res.Outcome, http.StatusOK, res)
}

// Redeem handles POST /api/v1/claims/:token/redeem.
func (h *Handlers) Redeem(c *gin.Context) {
	res := h.svc.UseToken(c.Request.Context(), c.Param("token"), c.ClientIP())
	respond(c, res.Outcome, http.StatusOK, res)
}

// Extend handles POST /api/v1/tokens/:token/extend.
func (h *Handlers) Extend(c *gin.Context) {
	var req struct {
		AdditionalSeconds int64 `json:"additional_seconds" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.AdditionalSeconds > maxSeconds || req.AdditionalSeconds < -maxSeconds {
		badRequest(c)
		return
	}

	res := h.svc.ExtendToken(c.Request.Context(), c.Param("token"), time.Duration(req.AdditionalSeconds)*time.Second)
	respond(c, res.Outcome, http.StatusOK, res)
}

// Cleanup handles POST /api/v1/tokens/cleanup?older_than_days=N.
func (h *Handlers) Cleanup(c *gin.Context) {
	days := 0
	if v := c.Query("older_than_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			badRequest(c)
			return
		}
		days = n
	}

	res := h.svc.CleanupExpiredTokens(c.Request.Context(), days)
	respond(c, res.Outcome, http.StatusOK, res)
}

// Statistics handles GET /api/v1/tokens/statistics.
func (h *Handlers) Statistics(c *gin.Context) {
	res := h.svc.GetStatistics(c.Request.Context())
	respond(c, res.Outcome, http.StatusOK, res)
}
