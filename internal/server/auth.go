package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	otpdomain "github.com/smallbiznis/hisaab/internal/otp/domain"
)

type requestOTPRequest struct {
	Phone   string `json:"phone"`
	Channel string `json:"channel"`
}

func (s *Server) RequestOTP(c *gin.Context) {
	var req requestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.otpSvc.Request(c.Request.Context(), otpdomain.RequestInput{
		Phone:   strings.TrimSpace(req.Phone),
		Channel: strings.TrimSpace(req.Channel),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"resend_after_seconds": int(resp.ResendAfter.Seconds()),
	}})
}

type verifyOTPRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

func (s *Server) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.otpSvc.Verify(c.Request.Context(), otpdomain.VerifyInput{
		Phone: strings.TrimSpace(req.Phone),
		Code:  strings.TrimSpace(req.Code),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isAuthValidationError(err error) bool {
	switch err {
	case otpdomain.ErrInvalidPhone,
		otpdomain.ErrInvalidCode,
		otpdomain.ErrCodeExpired:
		return true
	default:
		return false
	}
}
