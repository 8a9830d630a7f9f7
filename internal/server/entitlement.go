package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	entitlementdomain "github.com/railzwaylabs/shopfaq/internal/entitlement/domain"
)

// CheckEntitlement answers whether the shop may perform :action now. A
// denial is a normal 200 response carrying the decision.
func (s *Server) CheckEntitlement(c *gin.Context) {
	action := entitlementdomain.Action(strings.TrimSpace(c.Param("action")))
	decision, err := s.entitlements.CanPerform(c.Request.Context(), shopFrom(c), action)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, decision)
}
