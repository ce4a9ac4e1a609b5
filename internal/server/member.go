package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	memberdomain "github.com/smallbiznis/hisaab/internal/member/domain"
)

type createStaffRequest struct {
	Name         string `json:"name"`
	CNIC         string `json:"cnic"`
	PrimaryPhone string `json:"primary_phone"`
}

func (s *Server) CreateStaffMember(c *gin.Context) {
	var req createStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.memberSvc.CreateStaff(c.Request.Context(), memberdomain.NewStaffMember{
		Name:         strings.TrimSpace(req.Name),
		CNIC:         strings.TrimSpace(req.CNIC),
		PrimaryPhone: strings.TrimSpace(req.PrimaryPhone),
		MerchantID:   strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createCustomerRequest struct {
	Name         string         `json:"name"`
	CNIC         string         `json:"cnic"`
	PrimaryPhone string         `json:"primary_phone"`
	Membership   membershipBody `json:"membership"`
}

type membershipBody struct {
	Area            string          `json:"area"`
	City            string          `json:"city"`
	Address         string          `json:"address"`
	SecondaryPhone  string          `json:"secondary_phone"`
	IsMonthly       bool            `json:"is_monthly"`
	ActualPrice     decimal.Decimal `json:"actual_price"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
}

func (s *Server) CreateCustomerMember(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.memberSvc.CreateCustomer(c.Request.Context(), memberdomain.NewCustomerMember{
		Name:         strings.TrimSpace(req.Name),
		CNIC:         strings.TrimSpace(req.CNIC),
		PrimaryPhone: strings.TrimSpace(req.PrimaryPhone),
		Membership: memberdomain.MembershipDetails{
			MerchantID:      strings.TrimSpace(c.Param("id")),
			Area:            strings.TrimSpace(req.Membership.Area),
			City:            strings.TrimSpace(req.Membership.City),
			Address:         strings.TrimSpace(req.Membership.Address),
			SecondaryPhone:  strings.TrimSpace(req.Membership.SecondaryPhone),
			IsMonthly:       req.Membership.IsMonthly,
			ActualPrice:     req.Membership.ActualPrice,
			DiscountedPrice: req.Membership.DiscountedPrice,
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMerchantMembers(c *gin.Context) {
	resp, err := s.memberSvc.ListByMerchant(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetMember(c *gin.Context) {
	resp, err := s.memberSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isMemberValidationError(err error) bool {
	switch err {
	case memberdomain.ErrInvalidName,
		memberdomain.ErrInvalidPhone,
		memberdomain.ErrInvalidMerchant:
		return true
	default:
		return false
	}
}
