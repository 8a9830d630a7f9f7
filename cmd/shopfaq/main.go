package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/shopfaq/internal/billing"
	billingdomain "github.com/railzwaylabs/shopfaq/internal/billing/domain"
	"github.com/railzwaylabs/shopfaq/internal/clock"
	"github.com/railzwaylabs/shopfaq/internal/config"
	"github.com/railzwaylabs/shopfaq/internal/entitlement"
	"github.com/railzwaylabs/shopfaq/internal/faq"
	"github.com/railzwaylabs/shopfaq/internal/migration"
	"github.com/railzwaylabs/shopfaq/internal/observability"
	"github.com/railzwaylabs/shopfaq/internal/plan"
	"github.com/railzwaylabs/shopfaq/internal/scheduler"
	"github.com/railzwaylabs/shopfaq/internal/security/vault"
	"github.com/railzwaylabs/shopfaq/internal/server"
	"github.com/railzwaylabs/shopfaq/internal/settings"
	"github.com/railzwaylabs/shopfaq/internal/shopcontext"
	"github.com/railzwaylabs/shopfaq/internal/subscription"
	"github.com/railzwaylabs/shopfaq/internal/usage"
	"github.com/railzwaylabs/shopfaq/internal/webhook"
	"github.com/railzwaylabs/shopfaq/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "shopfaq",
		Short:   "Shopify FAQ billing and entitlement engine",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newSyncCmd(), newAllCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newSyncCmd() *cobra.Command {
	var shop string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile one shop's subscription with the billing provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), shop)
		},
	}
	cmd.Flags().StringVar(&shop, "shop", "", "shop domain, e.g. demo.myshopify.com")
	_ = cmd.MarkFlagRequired("shop")
	return cmd
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start the API server and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runServe()
			return nil
		},
	}
}

func baseModules() fx.Option {
	return fx.Options(
		config.Module,
		infraModules(),
	)
}

func infraModules() fx.Option {
	return fx.Options(
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
	)
}

func domainModules() fx.Option {
	return fx.Options(
		clock.Module,
		plan.Module,
		subscription.Module,
		usage.Module,
		billing.Module,
		entitlement.Module,
		vault.Module,
		settings.Module,
		faq.Module,
		webhook.Module,
	)
}

func runMigrate() error {
	app := fx.New(
		baseModules(),
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	app := fx.New(
		baseModules(),
		domainModules(),
		scheduler.Module,
		server.Module,
		fx.Invoke(startScheduler),
	)
	app.Run()
}

func runSync(ctx context.Context, shop string) error {
	normalized, ok := shopcontext.Normalize(shop)
	if !ok {
		return errors.New("--shop must be a *.myshopify.com domain")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := checkSyncProvider(cfg); err != nil {
		return err
	}

	var svc billingdomain.Service
	app := fx.New(
		fx.Supply(cfg),
		infraModules(),
		plan.Module,
		subscription.Module,
		billing.Module,
		fx.Populate(&svc),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	defer func() { _ = app.Stop(context.Background()) }()

	sub, err := svc.SyncSubscription(ctx, normalized)
	if err != nil {
		return fmt.Errorf("sync %s: %w", normalized, err)
	}
	fmt.Printf("%s plan=%s status=%s\n", sub.Shop, sub.Plan, sub.Status)
	return nil
}

// checkSyncProvider refuses providers whose charges only live inside a
// running server. A one-off process would see none and downgrade the shop.
func checkSyncProvider(cfg config.Config) error {
	if cfg.Billing.Provider == config.SandboxProvider {
		return fmt.Errorf("sync needs a persistent billing provider: BILLING_PROVIDER=%s keeps charges in server memory", cfg.Billing.Provider)
	}
	return nil
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}

func startScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
