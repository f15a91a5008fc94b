package handlers

import (
	"net/http"
	"strconv"

	"report2earn/internal/repository"
	"report2earn/internal/services"

	"github.com/gin-gonic/gin"
)

// GovernanceHandler serves the read path of the DAO. Mutations (create,
// vote, execute) go through the operator CLI, not the public API.
type GovernanceHandler struct {
	governanceService *services.GovernanceService
	repo              *repository.Repository
}

func NewGovernanceHandler(governanceService *services.GovernanceService, repo *repository.Repository) *GovernanceHandler {
	return &GovernanceHandler{governanceService: governanceService, repo: repo}
}

// ListProposals serves the indexer-maintained proposal cache
func (h *GovernanceHandler) ListProposals(c *gin.Context) {
	proposals, err := h.repo.ListProposals(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    proposals,
	})
}

// GetProposal reads one proposal live from chain state
func (h *GovernanceHandler) GetProposal(c *gin.Context) {
	proposalID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || proposalID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}

	record, err := h.governanceService.GetProposal(c.Request.Context(), proposalID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if record.Creator == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    record,
	})
}
