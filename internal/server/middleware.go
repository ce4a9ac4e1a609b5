package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	memberdomain "github.com/smallbiznis/hisaab/internal/member/domain"
	otpdomain "github.com/smallbiznis/hisaab/internal/otp/domain"
)

const (
	contextMemberIDKey = "member_id"
	contextPhoneKey    = "phone"
)

// AuthRequired validates the Bearer token and stores the caller's member ID on
// the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims := &otpdomain.AccessClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrUnauthorized
			}
			return []byte(s.cfg.AuthJWTSecret), nil
		})
		if err != nil || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextMemberIDKey, claims.Subject)
		c.Set(contextPhoneKey, claims.Phone)
		c.Next()
	}
}

// RequireMerchantAccess allows only members holding a staff or merchant role
// through to merchant-scoped routes.
func (s *Server) RequireMerchantAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		member, err := s.callerMember(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !member.HasRole(memberdomain.RoleStaff) && !member.HasRole(memberdomain.RoleMerchant) {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

// callerID returns the authenticated member ID set by AuthRequired.
func (s *Server) callerID(c *gin.Context) (string, error) {
	id := c.GetString(contextMemberIDKey)
	if strings.TrimSpace(id) == "" {
		return "", ErrUnauthorized
	}
	return id, nil
}

func (s *Server) callerMember(c *gin.Context) (memberdomain.MerchantMember, error) {
	id, err := s.callerID(c)
	if err != nil {
		return memberdomain.MerchantMember{}, err
	}
	return s.memberSvc.GetByID(c.Request.Context(), id)
}
