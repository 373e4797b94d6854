package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	organizationdomain "github.com/postpulse/postpulse/internal/organization/domain"
)

type entitlementsResponse struct {
	Organization *organizationdomain.Organization       `json:"organization"`
	Limits       *organizationdomain.OrganizationLimits `json:"limits,omitempty"`
}

// HandleGetEntitlements is a read-only operator view of one tenant's
// reconciled billing state.
func (s *Server) HandleGetEntitlements(c *gin.Context) {
	tenantID := strings.TrimSpace(c.Param("tenant_id"))

	org, err := s.orgRepo.FindByTenantID(c.Request.Context(), s.db, tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if org == nil {
		AbortWithError(c, organizationdomain.ErrNotFound)
		return
	}

	limits, err := s.orgRepo.FindLimitsByOrgID(c.Request.Context(), s.db, org.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, entitlementsResponse{Organization: org, Limits: limits})
}
