package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/railzwaylabs/shopfaq/internal/billing/adapters/sandbox"
	billingservice "github.com/railzwaylabs/shopfaq/internal/billing/service"
	"github.com/railzwaylabs/shopfaq/internal/clock"
	"github.com/railzwaylabs/shopfaq/internal/config"
	entitlementservice "github.com/railzwaylabs/shopfaq/internal/entitlement/service"
	faqdomain "github.com/railzwaylabs/shopfaq/internal/faq/domain"
	faqrepository "github.com/railzwaylabs/shopfaq/internal/faq/repository"
	faqservice "github.com/railzwaylabs/shopfaq/internal/faq/service"
	"github.com/railzwaylabs/shopfaq/internal/faq/storefront"
	"github.com/railzwaylabs/shopfaq/internal/migration"
	"github.com/railzwaylabs/shopfaq/internal/observability"
	plandomain "github.com/railzwaylabs/shopfaq/internal/plan/domain"
	"github.com/railzwaylabs/shopfaq/internal/security/vault"
	settingsdomain "github.com/railzwaylabs/shopfaq/internal/settings/domain"
	settingsrepository "github.com/railzwaylabs/shopfaq/internal/settings/repository"
	settingsservice "github.com/railzwaylabs/shopfaq/internal/settings/service"
	subscriptionrepository "github.com/railzwaylabs/shopfaq/internal/subscription/repository"
	usagerepository "github.com/railzwaylabs/shopfaq/internal/usage/repository"
	usageservice "github.com/railzwaylabs/shopfaq/internal/usage/service"
	webhookdomain "github.com/railzwaylabs/shopfaq/internal/webhook/domain"
	webhookrepository "github.com/railzwaylabs/shopfaq/internal/webhook/repository"
	webhookservice "github.com/railzwaylabs/shopfaq/internal/webhook/service"
	"github.com/railzwaylabs/shopfaq/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testShop      = "demo.myshopify.com"
	webhookSecret = "whsec_server"
)

type fakeGenerator struct {
	calls int
}

func (g *fakeGenerator) Generate(ctx context.Context, product faqdomain.Product, count int) ([]faqdomain.QA, error) {
	g.calls++
	return []faqdomain.QA{{Question: "What is " + product.Title + "?", Answer: "A product."}}, nil
}

type fakeFactory struct {
	gen *fakeGenerator
}

func (f fakeFactory) NewGenerator(provider settingsdomain.AIProvider, apiKey, model string) (faqdomain.Generator, error) {
	return f.gen, nil
}

type repoCounter struct {
	db   *gorm.DB
	repo faqdomain.Repository
}

func (c repoCounter) CountPublished(ctx context.Context, shop string) (int64, error) {
	return c.repo.CountPublished(ctx, c.db, shop)
}

type testApp struct {
	router  *gin.Engine
	db      *gorm.DB
	gen     *fakeGenerator
	sandbox *sandbox.Provider
}

func newTestApp(t *testing.T) testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	db := dbtest.Open(t, migration.Models()...)
	log := zap.NewNop()
	metrics := observability.NewMetrics()
	catalog := plandomain.DefaultCatalog()
	cfg := config.Config{
		App: config.AppConfig{Env: "development", Version: "test"},
		Billing: config.BillingConfig{
			ProviderTimeout: time.Second,
			Currency:        "USD",
			PublicBaseURL:   "http://app.test",
		},
		Usage:   config.UsageConfig{Timezone: "UTC"},
		Webhook: config.WebhookConfig{Secret: webhookSecret},
	}

	provider := sandbox.New(cfg.Billing.PublicBaseURL)
	billing := billingservice.New(billingservice.Params{
		DB:       db,
		Log:      log,
		Cfg:      cfg,
		Catalog:  catalog,
		Repo:     subscriptionrepository.Provide(node),
		Provider: provider,
		Metrics:  metrics,
	})

	usage, err := usageservice.New(usageservice.Params{
		Ledger:  usagerepository.NewGormLedger(db, node),
		Clock:   clock.New(),
		Cfg:     cfg,
		Log:     log,
		Metrics: metrics,
	})
	require.NoError(t, err)

	faqRepo := faqrepository.Provide(node)
	guard := entitlementservice.New(entitlementservice.Params{
		Log:       log,
		Catalog:   catalog,
		Billing:   billing,
		Usage:     usage,
		Published: repoCounter{db: db, repo: faqRepo},
		Metrics:   metrics,
	})

	v, err := vault.NewAES("server-test-key")
	require.NoError(t, err)
	settings := settingsservice.New(settingsservice.Params{
		DB:    db,
		Log:   log,
		Repo:  settingsrepository.Provide(node),
		Vault: v,
	})

	gen := &fakeGenerator{}
	faqs := faqservice.New(faqservice.Params{
		DB:         db,
		Log:        log,
		Repo:       faqRepo,
		Guard:      guard,
		Usage:      usage,
		Settings:   settings,
		Generators: fakeFactory{gen: gen},
		Storefront: storefront.NewMemory(),
		Metrics:    metrics,
	})

	webhooks := webhookservice.New(webhookservice.Params{
		DB:       db,
		Log:      log,
		Cfg:      cfg,
		Clock:    clock.New(),
		Repo:     webhookrepository.Provide(node),
		Billing:  billing,
		FAQs:     faqs,
		Settings: settings,
		Metrics:  metrics,
	})

	srv := New(Params{
		DB:           db,
		Log:          log,
		Cfg:          cfg,
		Metrics:      metrics,
		Catalog:      catalog,
		Billing:      billing,
		Provider:     provider,
		Entitlements: guard,
		Usage:        usage,
		Settings:     settings,
		FAQs:         faqs,
		Webhooks:     webhooks,
	})
	return testApp{router: NewEngine(srv), db: db, gen: gen, sandbox: provider}
}

func (a testApp) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderShop, testShop)
	resp := httptest.NewRecorder()
	a.router.ServeHTTP(resp, req)
	return resp
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code      string          `json:"code"`
		Message   string          `json:"message"`
		Retryable bool            `json:"retryable"`
		LimitHit  bool            `json:"limit_hit"`
		Decision  json.RawMessage `json:"decision"`
	} `json:"error"`
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	return env
}

func TestShopRequired(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/billing", nil)
	resp := httptest.NewRecorder()
	app.router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/billing", nil)
	req.Header.Set(HeaderShop, "evil.example.com")
	resp = httptest.NewRecorder()
	app.router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_request", decode(t, resp).Error.Code)
}

func TestBillingSummaryForNewShop(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, http.MethodGet, "/api/billing", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var summary struct {
		Plan struct {
			ID string `json:"id"`
		} `json:"plan"`
		Generations struct {
			Used  int64  `json:"used"`
			Limit *int64 `json:"limit"`
		} `json:"generations"`
		Plans []json.RawMessage `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &summary))
	assert.Equal(t, "free", summary.Plan.ID)
	assert.Equal(t, int64(0), summary.Generations.Used)
	require.NotNil(t, summary.Generations.Limit)
	assert.Equal(t, int64(10), *summary.Generations.Limit)
	assert.Len(t, summary.Plans, 4)
}

func TestListPlansMarksUpgrades(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, http.MethodGet, "/api/billing/plans", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var plans struct {
		CurrentPlan string          `json:"current_plan"`
		Upgrades    map[string]bool `json:"upgrades"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &plans))
	assert.Equal(t, "free", plans.CurrentPlan)
	assert.Equal(t, map[string]bool{"free": false, "starter": true, "growth": true, "pro": true}, plans.Upgrades)
}

func TestSubscribeFreePlanRejected(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, http.MethodPost, "/api/billing/subscribe", gin.H{"plan_id": "free"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "free_plan_charge", decode(t, resp).Error.Code)

	resp = app.do(t, http.MethodPost, "/api/billing/subscribe", gin.H{})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCheckoutThroughSandbox(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, http.MethodPost, "/api/billing/subscribe", gin.H{"plan_id": "growth"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created struct {
		ConfirmationURL string `json:"confirmation_url"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &created))

	confirm, err := url.Parse(created.ConfirmationURL)
	require.NoError(t, err)
	resp = app.do(t, http.MethodGet, confirm.RequestURI(), nil)
	require.Equal(t, http.StatusFound, resp.Code)

	callback, err := url.Parse(resp.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/api/billing/callback", callback.Path)

	// The redirect is a browser navigation: no shop header, only ?shop.
	req := httptest.NewRequest(http.MethodGet, callback.RequestURI(), nil)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sub struct {
		Plan   string `json:"plan"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &sub))
	assert.Equal(t, "growth", sub.Plan)
	assert.Equal(t, "active", sub.Status)

	resp = app.do(t, http.MethodPost, "/api/billing/cancel", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &sub))
	assert.Equal(t, "free", sub.Plan)
}

func TestGenerateRequiresAPIKeyThenSucceeds(t *testing.T) {
	app := newTestApp(t)
	product := gin.H{"title": "Mug"}

	resp := app.do(t, http.MethodPost, "/api/products/1/faqs/generate", product)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "missing_api_key", decode(t, resp).Error.Code)

	resp = app.do(t, http.MethodPut, "/api/settings", gin.H{"ai_provider": "openai", "faq_count": 3, "api_key": "sk-test"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.NotContains(t, resp.Body.String(), "sk-test")
	assert.Contains(t, resp.Body.String(), `"has_api_key":true`)

	resp = app.do(t, http.MethodPost, "/api/products/1/faqs/generate", product)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, 1, app.gen.calls)

	resp = app.do(t, http.MethodGet, "/api/usage", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var usage struct {
		Generation int64 `json:"generation"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &usage))
	assert.Equal(t, int64(1), usage.Generation)
}

func TestPublishLimitAndRepublish(t *testing.T) {
	app := newTestApp(t)
	faqs := gin.H{"faqs": []gin.H{{"question": "Q?", "answer": "A."}}}

	for _, id := range []string{"1", "2", "3"} {
		resp := app.do(t, http.MethodPut, "/api/products/"+id+"/faqs", faqs)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	}

	resp := app.do(t, http.MethodPut, "/api/products/4/faqs", faqs)
	require.Equal(t, http.StatusForbidden, resp.Code)
	env := decode(t, resp)
	assert.True(t, env.Error.LimitHit)
	assert.Equal(t, "You've reached the 3-product limit on the Free plan.", env.Error.Message)

	for i := 0; i < 5; i++ {
		resp = app.do(t, http.MethodPut, "/api/products/2/faqs", faqs)
		require.Equal(t, http.StatusOK, resp.Code)
	}

	resp = app.do(t, http.MethodDelete, "/api/products/1/faqs", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	resp = app.do(t, http.MethodPut, "/api/products/4/faqs", faqs)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = app.do(t, http.MethodGet, "/api/faqs", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var list []json.RawMessage
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &list))
	assert.Len(t, list, 3)

	resp = app.do(t, http.MethodGet, "/api/products/1/faqs", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestUnpublishFreesProductSlot(t *testing.T) {
	app := newTestApp(t)
	faqs := gin.H{"faqs": []gin.H{{"question": "Q?", "answer": "A."}}}

	for _, id := range []string{"1", "2", "3"} {
		resp := app.do(t, http.MethodPut, "/api/products/"+id+"/faqs", faqs)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	}

	resp := app.do(t, http.MethodPost, "/api/products/1/faqs/unpublish", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var row struct {
		IsPublished bool `json:"is_published"`
		FAQs        []struct {
			Question string `json:"question"`
		} `json:"faqs"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &row))
	assert.False(t, row.IsPublished)
	assert.Len(t, row.FAQs, 1)

	resp = app.do(t, http.MethodPut, "/api/products/4/faqs", faqs)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = app.do(t, http.MethodPut, "/api/products/1/faqs", faqs)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = app.do(t, http.MethodPost, "/api/products/9/faqs/unpublish", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestEntitlementEndpoint(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, http.MethodGet, "/api/entitlements/generate", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var decision struct {
		Allowed bool `json:"allowed"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &decision))
	assert.True(t, decision.Allowed)
}

func TestUsagePeriodValidation(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, http.MethodGet, "/api/usage?period=2024-13", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = app.do(t, http.MethodGet, "/api/usage/history", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"data":[]}`, resp.Body.String())
}

func TestWebhookUninstall(t *testing.T) {
	app := newTestApp(t)
	resp := app.do(t, http.MethodPut, "/api/settings", gin.H{"ai_provider": "anthropic", "api_key": "sk-test"})
	require.Equal(t, http.StatusOK, resp.Code)

	payload := []byte(`{"id":1}`)
	send := func(signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhooks", bytes.NewReader(payload))
		req.Header.Set(webhookdomain.HeaderTopic, string(webhookdomain.TopicAppUninstalled))
		req.Header.Set(webhookdomain.HeaderShop, testShop)
		req.Header.Set(webhookdomain.HeaderEventID, "evt-1")
		req.Header.Set(webhookdomain.HeaderSignature, signature)
		rec := httptest.NewRecorder()
		app.router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, send("bogus").Code)
	require.Equal(t, http.StatusOK, send(webhookservice.Sign(webhookSecret, payload)).Code)

	var count int64
	require.NoError(t, app.db.Model(&settingsdomain.ShopSettings{}).Where("shop = ?", testShop).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = app.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "go_goroutines")

	resp = app.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
