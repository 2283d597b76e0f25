package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openraise/escrow-backend/internal/apperr"
	"github.com/openraise/escrow-backend/internal/services"
)

type ProjectHandler struct {
	registry services.RegistryService
	escrow   services.EscrowService
}

func NewProjectHandler(registry services.RegistryService, escrow services.EscrowService) *ProjectHandler {
	return &ProjectHandler{registry: registry, escrow: escrow}
}

func (ph *ProjectHandler) Create(c *gin.Context) {
	var params services.CreateProjectParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	project, err := ph.registry.CreateProject(c.Request.Context(), params)
	if err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": project})
}

func (ph *ProjectHandler) Get(c *gin.Context) {
	projectID, err := projectIDParam(c)
	if err != nil {
		Error(c, err)
		return
	}

	project, err := ph.registry.GetProject(c.Request.Context(), projectID)
	if err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": project})
}

func (ph *ProjectHandler) Events(c *gin.Context) {
	projectID, err := projectIDParam(c)
	if err != nil {
		Error(c, err)
		return
	}

	events, err := ph.registry.Events(c.Request.Context(), projectID)
	if err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (ph *ProjectHandler) Freeze(c *gin.Context) {
	projectID, err := projectIDParam(c)
	if err != nil {
		Error(c, err)
		return
	}

	if err := ph.registry.Freeze(c.Request.Context(), projectID); err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"frozen": true})
}

func (ph *ProjectHandler) Finalize(c *gin.Context) {
	projectID, err := projectIDParam(c)
	if err != nil {
		Error(c, err)
		return
	}

	result, err := ph.escrow.FinalizeProject(c.Request.Context(), projectID)
	if err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// projectIDParam rejects only unparseable ids. A parseable id that no
// project carries (0, negative, unassigned) flows through so the
// service layer reports it as not found.
func projectIDParam(c *gin.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.Validation("invalid project id %q", raw)
	}
	return id, nil
}
