package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openraise/escrow-backend/internal/services"
)

type RefundHandler struct {
	refunds services.RefundService
}

func NewRefundHandler(refunds services.RefundService) *RefundHandler {
	return &RefundHandler{refunds: refunds}
}

func (rh *RefundHandler) Claim(c *gin.Context) {
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

	amount, err := rh.refunds.ClaimRefund(c.Request.Context(), projectID, body.Contributor)
	if err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claimed": amount})
}

func (rh *RefundHandler) Pending(c *gin.Context) {
	projectID, err := projectIDParam(c)
	if err != nil {
		Error(c, err)
		return
	}

	amount, err := rh.refunds.PendingRefund(c.Request.Context(), projectID, c.Param("contributor"))
	if err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": amount})
}

func (rh *RefundHandler) List(c *gin.Context) {
	projectID, err := projectIDParam(c)
	if err != nil {
		Error(c, err)
		return
	}

	entries, err := rh.refunds.ListProjectRefunds(c.Request.Context(), projectID)
	if err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refunds": entries})
}

func (rh *RefundHandler) Clear(c *gin.Context) {
	projectID, err := projectIDParam(c)
	if err != nil {
		Error(c, err)
		return
	}

	if err := rh.refunds.ClearProjectRefunds(c.Request.Context(), projectID); err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}
