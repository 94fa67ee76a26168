package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/recipes-assistant-backend/internal/domain"
	"github.com/yungbote/recipes-assistant-backend/internal/http/response"
	"github.com/yungbote/recipes-assistant-backend/internal/services"
)

type ResourceHandler struct {
	resources services.ResourceService
	retriever services.Retriever
}

func NewResourceHandler(resources services.ResourceService, retriever services.Retriever) *ResourceHandler {
	return &ResourceHandler{resources: resources, retriever: retriever}
}

// DELETE /api/resources/:id
func (h *ResourceHandler) Delete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := h.resources.Delete(c.Request.Context(), id); err != nil {
		response.RespondAPIError(c, classify(err, http.StatusInternalServerError))
		return
	}
	response.RespondOK(c, gin.H{"status": "deleted", "id": id})
}

// GET /api/resources?limit=50
func (h *ResourceHandler) List(c *gin.Context) {
	limit := 50
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	list, err := h.resources.List(c.Request.Context(), limit)
	if err != nil {
		response.RespondAPIError(c, classify(err, http.StatusInternalServerError))
		return
	}
	response.RespondOK(c, gin.H{"resources": list})
}

// GET /api/resources/search?q=...
func (h *ResourceHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		response.RespondError(c, http.StatusBadRequest, errors.New("q is required"))
		return
	}
	matches, err := h.retriever.Retrieve(c.Request.Context(), q)
	if err != nil {
		response.RespondAPIError(c, classify(err, http.StatusBadGateway))
		return
	}
	if matches == nil {
		matches = []domain.Match{}
	}
	response.RespondOK(c, gin.H{"matches": matches})
}
