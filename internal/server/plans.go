package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) HandleGetPlan(c *gin.Context) {
	plan, err := s.planSvc.GetActiveByLookupKey(c.Request.Context(), c.Param("lookup_key"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}
