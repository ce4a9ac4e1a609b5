package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	supplydomain "github.com/smallbiznis/hisaab/internal/supply/domain"
)

type recordSupplyRequest struct {
	Given   int    `json:"given"`
	Taken   int    `json:"taken"`
	ForDate string `json:"for_date"` // YYYY-MM-DD, defaults to today
}

func (s *Server) RecordSupply(c *gin.Context) {
	var req recordSupplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var forDate time.Time
	if raw := strings.TrimSpace(req.ForDate); raw != "" {
		parsed, err := time.Parse(supplydomain.DateLayout, raw)
		if err != nil {
			AbortWithError(c, newValidationError("for_date", "invalid_for_date", "expected YYYY-MM-DD"))
			return
		}
		forDate = parsed
	}

	resp, err := s.supplySvc.Record(c.Request.Context(), supplydomain.RecordSupplyRequest{
		MembershipID: strings.TrimSpace(c.Param("id")),
		Given:        req.Given,
		Taken:        req.Taken,
		ForDate:      forDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSupplyRecords(c *gin.Context) {
	resp, err := s.supplySvc.ListByMembership(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isSupplyValidationError(err error) bool {
	switch err {
	case supplydomain.ErrInvalidMembership,
		supplydomain.ErrNegativeQuantity:
		return true
	default:
		return false
	}
}
