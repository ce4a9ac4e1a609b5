package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	merchantdomain "github.com/smallbiznis/hisaab/internal/merchant/domain"
)

type createMerchantRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (s *Server) CreateMerchant(c *gin.Context) {
	var req createMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ownerID, err := s.callerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.merchantSvc.Create(c.Request.Context(), merchantdomain.CreateMerchantRequest{
		Name:    strings.TrimSpace(req.Name),
		Type:    merchantdomain.MerchantType(strings.TrimSpace(req.Type)),
		OwnerID: ownerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMerchants(c *gin.Context) {
	resp, err := s.merchantSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetMerchant(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.merchantSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateCommissionRequest struct {
	CommissionStructure map[string]any `json:"commission_structure"`
}

func (s *Server) UpdateCommissionStructure(c *gin.Context) {
	var req updateCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.merchantSvc.UpdateCommissionStructure(c.Request.Context(), merchantdomain.UpdateCommissionRequest{
		MerchantID:          strings.TrimSpace(c.Param("id")),
		CommissionStructure: datatypes.JSONMap(req.CommissionStructure),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isMerchantValidationError(err error) bool {
	switch err {
	case merchantdomain.ErrInvalidName,
		merchantdomain.ErrInvalidType,
		merchantdomain.ErrInvalidOwner,
		merchantdomain.ErrInvalidID,
		merchantdomain.ErrInvalidStructure:
		return true
	default:
		return false
	}
}
