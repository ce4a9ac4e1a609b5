package server

import (
	"fmt"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) GetProfile(c *gin.Context) {
	member, err := s.callerMember(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": member})
}

func (s *Server) ListMyMemberships(c *gin.Context) {
	memberID, err := s.callerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	memberships, err := s.membershipSvc.ListByMember(c.Request.Context(), memberID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": memberships})
}

func (s *Server) UpdateProfilePicture(c *gin.Context) {
	caller, err := s.callerMember(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	memberID := caller.ID

	header, err := c.FormFile("picture")
	if err != nil {
		AbortWithError(c, newValidationError("picture", "required", "picture file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer file.Close()

	name := fmt.Sprintf("members/%s/picture%s", memberID, path.Ext(header.Filename))
	url, err := s.uploader.Upload(c.Request.Context(), name, file)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	member, err := s.memberSvc.UpdatePicture(c.Request.Context(), memberID, url)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// The replaced picture is unreferenced once the new URL is stored.
	if old := caller.PictureURL; old != "" && old != url {
		if err := s.uploader.Delete(c.Request.Context(), old); err != nil {
			s.log.Warn("stale profile picture not removed",
				zap.String("member_id", memberID), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": member})
}
