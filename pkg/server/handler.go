package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mikeboe/grounded-search/pkg/search"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.health)
	api := r.Group("/api")
	{
		api.POST("/search", h.search)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.Service.Run(c.Request.Context(), req)
	if err != nil {
		var cfgErr *search.ConfigError
		if errors.As(err, &cfgErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": cfgErr.Error()})
			return
		}
		// Upstream URLs never leak to API consumers.
		c.JSON(http.StatusBadGateway, gin.H{"error": search.RedactURLs(err.Error())})
		return
	}

	c.JSON(http.StatusOK, result)
}
