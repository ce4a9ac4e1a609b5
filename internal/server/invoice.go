package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
)

type createInvoiceRequest struct {
	MembershipID string          `json:"membership_id"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Type         string          `json:"type"`
	Metadata     map[string]any  `json:"metadata"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actor, err := s.callerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	invoiceType := invoicedomain.InvoiceType(strings.TrimSpace(req.Type))
	if invoiceType == "" {
		invoiceType = invoicedomain.TypeOneTime
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateInvoiceRequest{
		MembershipID: strings.TrimSpace(req.MembershipID),
		TotalAmount:  req.TotalAmount,
		Type:         invoiceType,
		Metadata:     datatypes.JSONMap(req.Metadata),
		Actor:        actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		MerchantID   string `form:"merchant_id"`
		MembershipID string `form:"membership_id"`
		MemberID     string `form:"member_id"`
		Status       string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := invoicedomain.ListInvoiceRequest{
		MerchantID:   strings.TrimSpace(query.MerchantID),
		MembershipID: strings.TrimSpace(query.MembershipID),
		MemberID:     strings.TrimSpace(query.MemberID),
	}
	if status := strings.TrimSpace(query.Status); status != "" {
		st := invoicedomain.InvoiceStatus(status)
		req.Status = &st
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateInvoiceRequest struct {
	TotalAmount *decimal.Decimal `json:"total_amount"`
	Remarks     string           `json:"remarks"`
	MarkPaid    bool             `json:"mark_paid"`
	IsCancel    bool             `json:"is_cancel"`
}

// UpdateInvoice dispatches one of three mutations: cancel, mark paid, or an
// amount amendment. Exactly one is applied per call, in that priority order.
func (s *Server) UpdateInvoice(c *gin.Context) {
	var req updateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actor, err := s.callerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	invoiceID := strings.TrimSpace(c.Param("id"))

	var resp invoicedomain.Invoice
	switch {
	case req.IsCancel:
		resp, err = s.invoiceSvc.Cancel(c.Request.Context(), invoicedomain.CancelInvoiceRequest{
			InvoiceID: invoiceID,
			Actor:     actor,
		})
	case req.MarkPaid:
		resp, err = s.invoiceSvc.MarkPaid(c.Request.Context(), invoicedomain.MarkPaidRequest{
			InvoiceID: invoiceID,
			Actor:     actor,
		})
	case req.TotalAmount != nil:
		resp, err = s.invoiceSvc.Amend(c.Request.Context(), invoicedomain.AmendInvoiceRequest{
			InvoiceID:   invoiceID,
			TotalAmount: *req.TotalAmount,
			Remarks:     strings.TrimSpace(req.Remarks),
			Actor:       actor,
		})
	default:
		AbortWithError(c, invalidRequestError())
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isInvoiceValidationError(err error) bool {
	switch err {
	case invoicedomain.ErrInvalidAmount,
		invoicedomain.ErrInvalidID,
		invoicedomain.ErrRemarksRequired,
		invoicedomain.ErrDueBelowZero:
		return true
	default:
		return false
	}
}
