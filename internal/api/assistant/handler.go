// Package assistant exposes the question-answering pipeline over HTTP.
package assistant

import (
	"net/http"

	"github.com/askfolio/askfolio/internal/domain"
	"github.com/askfolio/askfolio/internal/service"
	"github.com/gin-gonic/gin"
)

// Handler handles assistant API requests
type Handler struct {
	chatService *service.ChatService
	assistant   *service.AssistantService
}

// NewHandler creates a new assistant handler
func NewHandler(chatService *service.ChatService, assistant *service.AssistantService) *Handler {
	return &Handler{chatService: chatService, assistant: assistant}
}

// RegisterRoutes registers assistant routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/query", h.Query)
	r.GET("/sessions/:id/messages", h.History)
	r.GET("/stats/cache", h.CacheStats)
	r.GET("/stats/performance", h.PerformanceReport)
}

// Query answers a user question. The response is always well-formed: empty
// queries and degraded-pipeline fallbacks come back as 200s with the
// appropriate flags set, never as errors.
func (h *Handler) Query(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := h.chatService.Ask(c.Request.Context(), &req)
	c.JSON(http.StatusOK, resp)
}

// History returns the messages of a session
func (h *Handler) History(c *gin.Context) {
	messages, err := h.chatService.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		if err == domain.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// CacheStats returns response cache counters
func (h *Handler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.assistant.CacheStats())
}

// PerformanceReport returns the health report
func (h *Handler) PerformanceReport(c *gin.Context) {
	c.JSON(http.StatusOK, h.assistant.PerformanceReport())
}
