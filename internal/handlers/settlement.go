package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openraise/escrow-backend/internal/services"
)

type SettlementHandler struct {
	settlement services.SettlementService
}

func NewSettlementHandler(settlement services.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlement: settlement}
}

func (sh *SettlementHandler) GetFeeRate(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"fee_rate_basis_points": sh.settlement.FeeRate()})
}

func (sh *SettlementHandler) SetFeeRate(c *gin.Context) {
	var body struct {
		FeeRateBasisPoints int64 `json:"fee_rate_basis_points"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := sh.settlement.SetFeeRate(body.FeeRateBasisPoints); err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fee_rate_basis_points": sh.settlement.FeeRate()})
}

func (sh *SettlementHandler) Records(c *gin.Context) {
	projectID, err := projectIDParam(c)
	if err != nil {
		Error(c, err)
		return
	}

	records, err := sh.settlement.Records(c.Request.Context(), projectID)
	if err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settlement_records": records})
}

func (sh *SettlementHandler) RetryPayouts(c *gin.Context) {
	projectID, err := projectIDParam(c)
	if err != nil {
		Error(c, err)
		return
	}

	paid, err := sh.settlement.RetryPayouts(c.Request.Context(), projectID)
	if err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paid": paid})
}
