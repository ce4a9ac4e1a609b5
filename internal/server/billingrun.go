package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	billingrundomain "github.com/smallbiznis/hisaab/internal/billingrun/domain"
)

type generateInvoicesRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// GenerateMonthlyInvoices kicks off the merchant's invoice run for a period.
// Omitting year and month targets the current month. The run is idempotent:
// unpaid monthly invoices already issued for the period are voided and
// regenerated.
func (s *Server) GenerateMonthlyInvoices(c *gin.Context) {
	// An empty body targets the current month.
	var req generateInvoicesRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}

	actor, err := s.callerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.billingRunSvc.Generate(c.Request.Context(), billingrundomain.GenerateRequest{
		MerchantID: strings.TrimSpace(c.Param("id")),
		Year:       req.Year,
		Month:      req.Month,
		Actor:      actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isBillingRunValidationError(err error) bool {
	switch err {
	case billingrundomain.ErrInvalidMerchant,
		billingrundomain.ErrInvalidMonth:
		return true
	default:
		return false
	}
}
