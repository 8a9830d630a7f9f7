package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	usagedomain "github.com/railzwaylabs/shopfaq/internal/usage/domain"
)

// GetUsage returns the counters of the current period, or of ?period=YYYY-MM.
func (s *Server) GetUsage(c *gin.Context) {
	ctx := c.Request.Context()
	shop := shopFrom(c)

	var (
		usage usagedomain.Usage
		err   error
	)
	if period := strings.TrimSpace(c.Query("period")); period != "" {
		if !usagedomain.ValidPeriod(period) {
			AbortWithError(c, newValidationError("period", "invalid_period", "period must be YYYY-MM"))
			return
		}
		usage, err = s.usageSvc.GetUsageForPeriod(ctx, shop, period)
	} else {
		usage, err = s.usageSvc.GetUsage(ctx, shop)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, usage)
}

func (s *Server) GetUsageHistory(c *gin.Context) {
	history, err := s.usageSvc.History(c.Request.Context(), shopFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if history == nil {
		history = []usagedomain.Usage{}
	}
	respondData(c, history)
}
