package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openraise/escrow-backend/internal/services"
)

type AutomationHandler struct {
	automation services.AutomationService
}

func NewAutomationHandler(automation services.AutomationService) *AutomationHandler {
	return &AutomationHandler{automation: automation}
}

// Check runs a batch lifecycle check. With an explicit id list it checks
// those; with an empty body it sweeps the worklist.
func (ah *AutomationHandler) Check(c *gin.Context) {
	var body struct {
		ProjectIDs []int64 `json:"project_ids"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if len(body.ProjectIDs) == 0 {
		updated, results, err := ah.automation.CheckWorklist(c.Request.Context())
		if err != nil {
			Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": updated, "results": results})
		return
	}

	updated, results := ah.automation.BatchCheck(c.Request.Context(), body.ProjectIDs)
	c.JSON(http.StatusOK, gin.H{"updated": updated, "results": results})
}

func (ah *AutomationHandler) Watch(c *gin.Context) {
	projectID, err := projectIDParam(c)
	if err != nil {
		Error(c, err)
		return
	}

	if err := ah.automation.WatchProject(c.Request.Context(), projectID); err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"watching": true})
}

func (ah *AutomationHandler) Unwatch(c *gin.Context) {
	projectID, err := projectIDParam(c)
	if err != nil {
		Error(c, err)
		return
	}

	if err := ah.automation.UnwatchProject(c.Request.Context(), projectID); err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"watching": false})
}

func (ah *AutomationHandler) Rebuild(c *gin.Context) {
	added, err := ah.automation.RebuildWorklist(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}
