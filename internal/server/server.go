package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/railzwaylabs/shopfaq/internal/billing/adapters/sandbox"
	billingdomain "github.com/railzwaylabs/shopfaq/internal/billing/domain"
	"github.com/railzwaylabs/shopfaq/internal/config"
	entitlementdomain "github.com/railzwaylabs/shopfaq/internal/entitlement/domain"
	faqdomain "github.com/railzwaylabs/shopfaq/internal/faq/domain"
	"github.com/railzwaylabs/shopfaq/internal/observability"
	plandomain "github.com/railzwaylabs/shopfaq/internal/plan/domain"
	settingsdomain "github.com/railzwaylabs/shopfaq/internal/settings/domain"
	usagedomain "github.com/railzwaylabs/shopfaq/internal/usage/domain"
	webhookdomain "github.com/railzwaylabs/shopfaq/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(New),
	fx.Provide(NewEngine),
	fx.Invoke(startHTTP),
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Cfg          config.Config
	Metrics      *observability.Metrics
	Catalog      *plandomain.Catalog
	Billing      billingdomain.Service
	Provider     billingdomain.Provider
	Entitlements entitlementdomain.Service
	Usage        usagedomain.Service
	Settings     settingsdomain.Service
	FAQs         faqdomain.Service
	Webhooks     webhookdomain.Service
}

type Server struct {
	db           *gorm.DB
	log          *zap.Logger
	cfg          config.Config
	metrics      *observability.Metrics
	catalog      *plandomain.Catalog
	billingSvc   billingdomain.Service
	sandbox      *sandbox.Provider
	entitlements entitlementdomain.Service
	usageSvc     usagedomain.Service
	settingsSvc  settingsdomain.Service
	faqSvc       faqdomain.Service
	webhookSvc   webhookdomain.Service
}

func New(p Params) *Server {
	s := &Server{
		db:           p.DB,
		log:          p.Log.Named("server"),
		cfg:          p.Cfg,
		metrics:      p.Metrics,
		catalog:      p.Catalog,
		billingSvc:   p.Billing,
		entitlements: p.Entitlements,
		usageSvc:     p.Usage,
		settingsSvc:  p.Settings,
		faqSvc:       p.FAQs,
		webhookSvc:   p.Webhooks,
	}
	// The confirmation page only exists for the in-process provider.
	if sb, ok := p.Provider.(*sandbox.Provider); ok {
		s.sandbox = sb
	}
	return s
}

// NewEngine builds the router with every route registered.
func NewEngine(s *Server) *gin.Engine {
	if s.cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.RequestLogger())
	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", s.Healthz)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	}

	r.POST("/webhooks", s.IngestWebhook)
	if s.sandbox != nil {
		r.GET(sandbox.ConfirmPath, s.SandboxConfirm)
	}

	api := r.Group("/api", s.ShopRequired())
	{
		api.GET("/billing", s.GetBillingSummary)
		api.GET("/billing/plans", s.ListPlans)
		api.POST("/billing/subscribe", s.Subscribe)
		api.GET("/billing/callback", s.BillingCallback)
		api.POST("/billing/sync", s.SyncSubscription)
		api.POST("/billing/cancel", s.CancelSubscription)

		api.GET("/entitlements/:action", s.CheckEntitlement)

		api.GET("/usage", s.GetUsage)
		api.GET("/usage/history", s.GetUsageHistory)

		api.GET("/settings", s.GetSettings)
		api.PUT("/settings", s.SaveSettings)

		api.GET("/faqs", s.ListFAQs)
		api.GET("/products/:id/faqs", s.GetFAQs)
		api.POST("/products/:id/faqs/generate", s.GenerateFAQs)
		api.PUT("/products/:id/faqs", s.PublishFAQs)
		api.POST("/products/:id/faqs/unpublish", s.UnpublishFAQs)
		api.DELETE("/products/:id/faqs", s.DeleteFAQs)
	}

	r.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}

func startHTTP(lc fx.Lifecycle, cfg config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log = log.Named("http")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", srv.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
