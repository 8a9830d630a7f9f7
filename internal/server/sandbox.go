package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SandboxConfirm stands in for the provider's approval page.
// ?approve=false declines the charge.
func (s *Server) SandboxConfirm(c *gin.Context) {
	chargeID := strings.TrimSpace(c.Query("charge_id"))
	if chargeID == "" {
		AbortWithError(c, newValidationError("charge_id", "required", "charge_id is required"))
		return
	}
	approve := !strings.EqualFold(strings.TrimSpace(c.Query("approve")), "false")

	redirect, err := s.sandbox.Confirm(chargeID, approve)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Redirect(http.StatusFound, redirect)
}
