package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openraise/escrow-backend/internal/services"
)

type ContributionHandler struct {
	contributions services.ContributionService
	escrow        services.EscrowService
}

func NewContributionHandler(contributions services.ContributionService, escrow services.EscrowService) *ContributionHandler {
	return &ContributionHandler{contributions: contributions, escrow: escrow}
}

func (ch *ContributionHandler) Contribute(c *gin.Context) {
	projectID, err := projectIDParam(c)
	if err != nil {
		Error(c, err)
		return
	}

	var body struct {
		Contributor string `json:"contributor"`
		Amount      int64  `json:"amount"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	record, err := ch.contributions.Contribute(c.Request.Context(), projectID, body.Contributor, body.Amount)
	if err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"contribution": record})
}

func (ch *ContributionHandler) Cancel(c *gin.Context) {
	projectID, err := projectIDParam(c)
	if err != nil {
		Error(c, err)
		return
	}

	var body struct {
		Contributor string `json:"contributor"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	refund, err := ch.escrow.CancelContribution(c.Request.Context(), projectID, body.Contributor)
	if err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refund": refund})
}

func (ch *ContributionHandler) Records(c *gin.Context) {
	projectID, err := projectIDParam(c)
	if err != nil {
		Error(c, err)
		return
	}

	records, err := ch.contributions.Records(c.Request.Context(), projectID)
	if err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contributions": records})
}
