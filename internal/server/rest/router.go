package rest

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/claimkeeper/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the public claim routes, the operator routes and the
// health and metrics endpoints. Forwarding headers are honoured only when the
// peer is one of trustedProxies; with none, the socket address is the client.
func NewRouter(svc ClaimService, logger logging.Logger, secretKey []byte, trustedProxies []string, gatherer prometheus.Gatherer) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(gin.Recovery(), RequestID(), ClientAddress(), AccessLog(logger))

	h := NewHandlers(svc)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/v1")

	claims := api.Group("/claims")
	claims.GET("/:token", h.Validate)
	claims.POST("/:token/redeem", h.Redeem)

	tokens := api.Group("/tokens", OperatorAuth(secretKey))
	tokens.POST("", h.Generate)
	tokens.POST("/cleanup", h.Cleanup)
	tokens.GET("/statistics", h.Statistics)
	tokens.POST("/:token/extend", h.Extend)

	return router, nil
}
