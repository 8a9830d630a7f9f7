package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	plandomain "github.com/railzwaylabs/shopfaq/internal/plan/domain"
)

type subscribeRequest struct {
	PlanID    string `json:"plan_id"`
	ReturnURL string `json:"return_url"`
}

type plansResponse struct {
	Plans       []plandomain.Plan          `json:"plans"`
	CurrentPlan plandomain.PlanID          `json:"current_plan"`
	Upgrades    map[plandomain.PlanID]bool `json:"upgrades"`
}

// GetBillingSummary returns the plan, usage meters and catalog for the
// billing page.
func (s *Server) GetBillingSummary(c *gin.Context) {
	summary, err := s.entitlements.Summary(c.Request.Context(), shopFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, summary)
}

func (s *Server) ListPlans(c *gin.Context) {
	sub, err := s.billingSvc.GetSubscription(c.Request.Context(), shopFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	current := s.catalog.Get(sub.Plan).ID
	plans := s.catalog.Plans()
	upgrades := make(map[plandomain.PlanID]bool, len(plans))
	for _, p := range plans {
		upgrades[p.ID] = s.catalog.IsUpgrade(p.ID, current)
	}
	respondData(c, plansResponse{
		Plans:       plans,
		CurrentPlan: current,
		Upgrades:    upgrades,
	})
}

// Subscribe starts a charge for a paid plan and hands back the URL the
// merchant must visit to approve it.
func (s *Server) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", "request body must be JSON"))
		return
	}
	planID := strings.TrimSpace(req.PlanID)
	if planID == "" {
		AbortWithError(c, newValidationError("plan_id", "required", "plan_id is required"))
		return
	}

	confirmationURL, err := s.billingSvc.CreateSubscription(c.Request.Context(), shopFrom(c), plandomain.PlanID(planID), req.ReturnURL)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, gin.H{"confirmation_url": confirmationURL})
}

// BillingCallback is where the provider sends the merchant after the
// approval page.
func (s *Server) BillingCallback(c *gin.Context) {
	sub, err := s.billingSvc.ConfirmCharge(
		c.Request.Context(),
		shopFrom(c),
		strings.TrimSpace(c.Query("charge_id")),
		plandomain.PlanID(strings.TrimSpace(c.Query("plan"))),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, sub)
}

func (s *Server) SyncSubscription(c *gin.Context) {
	sub, err := s.billingSvc.SyncSubscription(c.Request.Context(), shopFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, sub)
}

func (s *Server) CancelSubscription(c *gin.Context) {
	sub, err := s.billingSvc.CancelSubscription(c.Request.Context(), shopFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, sub)
}
