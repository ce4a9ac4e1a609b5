package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	membershipdomain "github.com/smallbiznis/hisaab/internal/membership/domain"
)

func (s *Server) GetMembership(c *gin.Context) {
	resp, err := s.membershipSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMerchantMemberships(c *gin.Context) {
	activeOnly := strings.EqualFold(c.Query("active"), "true")
	resp, err := s.membershipSvc.ListByMerchant(c.Request.Context(), strings.TrimSpace(c.Param("id")), activeOnly)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type toggleActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

func (s *Server) ToggleMembershipActive(c *gin.Context) {
	var req toggleActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.membershipSvc.ToggleActive(c.Request.Context(), membershipdomain.ToggleActiveRequest{
		MembershipID: strings.TrimSpace(c.Param("id")),
		IsActive:     *req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updatePricingRequest struct {
	ActualPrice     decimal.Decimal `json:"actual_price"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	IsMonthly       *bool           `json:"is_monthly"`
}

func (s *Server) UpdateMembershipPricing(c *gin.Context) {
	var req updatePricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.membershipSvc.UpdatePricing(c.Request.Context(), membershipdomain.UpdatePricingRequest{
		MembershipID:    strings.TrimSpace(c.Param("id")),
		ActualPrice:     req.ActualPrice,
		DiscountedPrice: req.DiscountedPrice,
		IsMonthly:       req.IsMonthly,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetMembershipStats(c *gin.Context) {
	resp, err := s.statsSvc.ForMembership(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isMembershipValidationError(err error) bool {
	switch err {
	case membershipdomain.ErrInvalidID,
		membershipdomain.ErrInvalidPrice,
		membershipdomain.ErrDiscountBelowActual:
		return true
	default:
		return false
	}
}
