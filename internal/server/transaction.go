package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	ledgerdomain "github.com/smallbiznis/hisaab/internal/ledger/domain"
)

type applyPaymentRequest struct {
	Value    decimal.Decimal `json:"value"`
	IsOnline bool            `json:"is_online"`
}

func (s *Server) ApplyPayment(c *gin.Context) {
	var req applyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actor, err := s.callerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.ledgerSvc.ApplyPayment(c.Request.Context(), ledgerdomain.ApplyPaymentRequest{
		MembershipID: strings.TrimSpace(c.Param("id")),
		Value:        req.Value,
		IsOnline:     req.IsOnline,
		Actor:        actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMembershipTransactions(c *gin.Context) {
	resp, err := s.ledgerSvc.ListByMembership(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTransaction(c *gin.Context) {
	resp, err := s.ledgerSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// RevertTransaction undoes a payment application, restoring the invoices it
// touched to their snapshotted state.
func (s *Server) RevertTransaction(c *gin.Context) {
	if err := s.ledgerSvc.Revert(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"reverted": true}})
}

func isLedgerValidationError(err error) bool {
	switch err {
	case ledgerdomain.ErrInvalidMembership,
		ledgerdomain.ErrInvalidAmount,
		ledgerdomain.ErrInvalidType:
		return true
	default:
		return false
	}
}
