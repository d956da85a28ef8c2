package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/telcolog/backend/internal/services"
)

type SearchController struct {
	search *services.SearchService
}

func NewSearchController(search *services.SearchService) *SearchController {
	return &SearchController{search: search}
}

type searchRequest struct {
	Query string `json:"query" binding:"required"`
}

// Search runs a semantic query over the ingested logs. The response shape is
// the same whether the vector or keyword path served it.
func (sc *SearchController) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := sc.search.Search(c.Request.Context(), req.Query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}
	c.JSON(http.StatusOK, resp)
}
