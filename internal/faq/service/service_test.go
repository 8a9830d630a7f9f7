package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	entitlementdomain "github.com/railzwaylabs/shopfaq/internal/entitlement/domain"
	"github.com/railzwaylabs/shopfaq/internal/faq/domain"
	"github.com/railzwaylabs/shopfaq/internal/faq/repository"
	"github.com/railzwaylabs/shopfaq/internal/faq/service"
	"github.com/railzwaylabs/shopfaq/internal/faq/storefront"
	"github.com/railzwaylabs/shopfaq/internal/observability"
	plandomain "github.com/railzwaylabs/shopfaq/internal/plan/domain"
	settingsdomain "github.com/railzwaylabs/shopfaq/internal/settings/domain"
	usagedomain "github.com/railzwaylabs/shopfaq/internal/usage/domain"
	"github.com/railzwaylabs/shopfaq/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const shop = "faq.myshopify.com"

// --- Mocks ---

type MockGuard struct {
	mock.Mock
}

func (m *MockGuard) CanPerform(ctx context.Context, shop string, action entitlementdomain.Action) (entitlementdomain.Decision, error) {
	args := m.Called(ctx, shop, action)
	return args.Get(0).(entitlementdomain.Decision), args.Error(1)
}

func (m *MockGuard) Summary(ctx context.Context, shop string) (entitlementdomain.Summary, error) {
	return entitlementdomain.Summary{}, nil
}

type MockUsage struct {
	mock.Mock
}

func (m *MockUsage) CurrentPeriodKey(ctx context.Context) string { return "2024-05" }

func (m *MockUsage) Increment(ctx context.Context, shop string, metric usagedomain.MetricType) error {
	return m.Called(ctx, shop, metric).Error(0)
}

func (m *MockUsage) GetUsage(ctx context.Context, shop string) (usagedomain.Usage, error) {
	return usagedomain.Usage{}, nil
}

func (m *MockUsage) GetUsageForPeriod(ctx context.Context, shop, period string) (usagedomain.Usage, error) {
	return usagedomain.Usage{}, nil
}

func (m *MockUsage) History(ctx context.Context, shop string) ([]usagedomain.Usage, error) {
	return nil, nil
}

type MockSettings struct {
	mock.Mock
}

func (m *MockSettings) Get(ctx context.Context, shop string) (settingsdomain.ShopSettings, error) {
	args := m.Called(ctx, shop)
	return args.Get(0).(settingsdomain.ShopSettings), args.Error(1)
}

func (m *MockSettings) Save(ctx context.Context, shop string, req settingsdomain.SaveRequest) (settingsdomain.ShopSettings, error) {
	return settingsdomain.ShopSettings{}, nil
}

func (m *MockSettings) Delete(ctx context.Context, shop string) error { return nil }

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, product domain.Product, count int) ([]domain.QA, error) {
	args := m.Called(ctx, product, count)
	qas, _ := args.Get(0).([]domain.QA)
	return qas, args.Error(1)
}

type staticFactory struct {
	gen domain.Generator
}

func (f staticFactory) NewGenerator(provider settingsdomain.AIProvider, apiKey, model string) (domain.Generator, error) {
	return f.gen, nil
}

// --- Tests ---

type fixture struct {
	svc        domain.Service
	repo       domain.Repository
	guard      *MockGuard
	usage      *MockUsage
	settings   *MockSettings
	gen        *MockGenerator
	storefront *storefront.Memory
}

func setup(t *testing.T) fixture {
	guard := &MockGuard{}
	f := setupWithGuard(t, guard)
	f.guard = guard
	return f
}

func setupWithGuard(t *testing.T, guard entitlementdomain.Service) fixture {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	db := dbtest.Open(t, &domain.ProductFAQ{})

	f := fixture{
		repo:       repository.Provide(node),
		usage:      &MockUsage{},
		settings:   &MockSettings{},
		gen:        &MockGenerator{},
		storefront: storefront.NewMemory(),
	}
	f.svc = service.New(service.Params{
		DB:         db,
		Log:        zap.NewNop(),
		Repo:       f.repo,
		Guard:      guard,
		Usage:      f.usage,
		Settings:   f.settings,
		Generators: staticFactory{gen: f.gen},
		Storefront: f.storefront,
		Metrics:    observability.NewMetrics(),
	})
	return f
}

func allowed(action entitlementdomain.Action) entitlementdomain.Decision {
	return entitlementdomain.Decision{Allowed: true, Action: action}
}

func denied(action entitlementdomain.Action, reason string) entitlementdomain.Decision {
	limit := int64(1)
	return entitlementdomain.Decision{Action: action, Reason: reason, Usage: 1, Limit: &limit, Plan: plandomain.Plan{ID: plandomain.PlanFree}}
}

func withKey() settingsdomain.ShopSettings {
	s := settingsdomain.Defaults(shop)
	s.APIKey = "sk-live"
	return s
}

var product = domain.Product{ID: "gid://shopify/Product/1", Title: "Mug"}

var qas = []domain.QA{{Question: "Is it dishwasher safe?", Answer: "Yes."}}

func TestGenerate_IncrementsAfterSuccessAndStoresDraft(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.guard.On("CanPerform", mock.Anything, shop, entitlementdomain.ActionGenerate).Return(allowed(entitlementdomain.ActionGenerate), nil)
	f.settings.On("Get", mock.Anything, shop).Return(withKey(), nil)
	f.gen.On("Generate", mock.Anything, product, settingsdomain.DefaultFAQCount).Return(qas, nil)
	f.usage.On("Increment", mock.Anything, shop, usagedomain.MetricGeneration).Return(nil).Once()

	row, err := f.svc.Generate(ctx, shop, product)
	require.NoError(t, err)
	assert.False(t, row.IsPublished)
	items, err := row.Items()
	require.NoError(t, err)
	assert.Equal(t, qas, items)

	_, rendered := f.storefront.FAQs(shop, product.ID)
	assert.False(t, rendered)
	f.usage.AssertExpectations(t)
}

func TestGenerate_DeniedDoesNotCallGenerator(t *testing.T) {
	f := setup(t)
	d := denied(entitlementdomain.ActionGenerate, "You've used all 10 AI generations this month on the Free plan.")
	f.guard.On("CanPerform", mock.Anything, shop, entitlementdomain.ActionGenerate).Return(d, nil)

	_, err := f.svc.Generate(context.Background(), shop, product)
	de, ok := entitlementdomain.AsDenied(err)
	require.True(t, ok)
	assert.Equal(t, d.Reason, de.Decision.Reason)

	f.gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
	f.usage.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerate_MissingAPIKey(t *testing.T) {
	f := setup(t)
	f.guard.On("CanPerform", mock.Anything, shop, entitlementdomain.ActionGenerate).Return(allowed(entitlementdomain.ActionGenerate), nil)
	f.settings.On("Get", mock.Anything, shop).Return(settingsdomain.Defaults(shop), nil)

	_, err := f.svc.Generate(context.Background(), shop, product)
	assert.ErrorIs(t, err, domain.ErrMissingAPIKey)
	f.usage.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerate_FailureIsNotMetered(t *testing.T) {
	f := setup(t)
	f.guard.On("CanPerform", mock.Anything, shop, entitlementdomain.ActionGenerate).Return(allowed(entitlementdomain.ActionGenerate), nil)
	f.settings.On("Get", mock.Anything, shop).Return(withKey(), nil)
	f.gen.On("Generate", mock.Anything, product, settingsdomain.DefaultFAQCount).Return(nil, domain.ErrGeneratorRateLimited)

	_, err := f.svc.Generate(context.Background(), shop, product)
	assert.ErrorIs(t, err, domain.ErrGeneratorRateLimited)
	f.usage.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything)

	_, err = f.svc.Get(context.Background(), shop, product.ID)
	assert.ErrorIs(t, err, domain.ErrFAQNotFound)
}

func TestGenerate_IncrementFailureStillReturnsDraft(t *testing.T) {
	f := setup(t)
	f.guard.On("CanPerform", mock.Anything, shop, entitlementdomain.ActionGenerate).Return(allowed(entitlementdomain.ActionGenerate), nil)
	f.settings.On("Get", mock.Anything, shop).Return(withKey(), nil)
	f.gen.On("Generate", mock.Anything, product, settingsdomain.DefaultFAQCount).Return(qas, nil)
	f.usage.On("Increment", mock.Anything, shop, usagedomain.MetricGeneration).Return(errors.New("ledger down"))

	row, err := f.svc.Generate(context.Background(), shop, product)
	require.NoError(t, err)
	assert.Equal(t, product.ID, row.ProductID)
}

func TestGenerate_InvalidInput(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Generate(context.Background(), " ", product)
	assert.ErrorIs(t, err, domain.ErrInvalidShop)

	_, err = f.svc.Generate(context.Background(), shop, domain.Product{ID: "1"})
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)
}

func TestPublish_RepublishNeverConsumesQuota(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.guard.On("CanPerform", mock.Anything, shop, entitlementdomain.ActionPublishFAQ).
		Return(allowed(entitlementdomain.ActionPublishFAQ), nil).Once()
	f.guard.On("CanPerform", mock.Anything, shop, entitlementdomain.ActionPublishFAQ).
		Return(denied(entitlementdomain.ActionPublishFAQ, "You've reached the 1-product limit on the Free plan."), nil)

	_, err := f.svc.Publish(ctx, shop, product.ID, qas)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		edited := []domain.QA{{Question: "Is it dishwasher safe?", Answer: "Yes, top rack."}}
		row, err := f.svc.Publish(ctx, shop, product.ID, edited)
		require.NoError(t, err)
		assert.True(t, row.IsPublished)
	}

	n, err := f.svc.CountPublished(ctx, shop)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = f.svc.Publish(ctx, shop, "gid://shopify/Product/2", qas)
	_, ok := entitlementdomain.AsDenied(err)
	assert.True(t, ok)

	rendered, ok := f.storefront.FAQs(shop, product.ID)
	require.True(t, ok)
	assert.Equal(t, "Yes, top rack.", rendered[0].Answer)
	f.usage.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything)
}

func TestPublish_DraftDeniedAtLimit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.guard.On("CanPerform", mock.Anything, shop, entitlementdomain.ActionGenerate).Return(allowed(entitlementdomain.ActionGenerate), nil)
	f.guard.On("CanPerform", mock.Anything, shop, entitlementdomain.ActionPublishFAQ).
		Return(denied(entitlementdomain.ActionPublishFAQ, "You've reached the 1-product limit on the Free plan."), nil)
	f.settings.On("Get", mock.Anything, shop).Return(withKey(), nil)
	f.gen.On("Generate", mock.Anything, product, settingsdomain.DefaultFAQCount).Return(qas, nil)
	f.usage.On("Increment", mock.Anything, shop, usagedomain.MetricGeneration).Return(nil)

	_, err := f.svc.Generate(ctx, shop, product)
	require.NoError(t, err)

	_, err = f.svc.Publish(ctx, shop, product.ID, qas)
	_, ok := entitlementdomain.AsDenied(err)
	assert.True(t, ok)
}

func TestGenerate_RegenerationReturnsProductToDraft(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.guard.On("CanPerform", mock.Anything, shop, mock.Anything).Return(allowed(entitlementdomain.ActionPublishFAQ), nil)
	f.settings.On("Get", mock.Anything, shop).Return(withKey(), nil)
	f.gen.On("Generate", mock.Anything, product, settingsdomain.DefaultFAQCount).Return(qas, nil)
	f.usage.On("Increment", mock.Anything, shop, usagedomain.MetricGeneration).Return(nil)

	_, err := f.svc.Publish(ctx, shop, product.ID, qas)
	require.NoError(t, err)
	row, err := f.svc.Generate(ctx, shop, product)
	require.NoError(t, err)
	assert.False(t, row.IsPublished)

	_, rendered := f.storefront.FAQs(shop, product.ID)
	assert.False(t, rendered)
	n, err := f.svc.CountPublished(ctx, shop)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUnpublish_KeepsDraftAndClearsStorefront(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.guard.On("CanPerform", mock.Anything, shop, entitlementdomain.ActionPublishFAQ).Return(allowed(entitlementdomain.ActionPublishFAQ), nil)

	_, err := f.svc.Publish(ctx, shop, product.ID, qas)
	require.NoError(t, err)

	row, err := f.svc.Unpublish(ctx, shop, product.ID)
	require.NoError(t, err)
	assert.False(t, row.IsPublished)
	items, err := row.Items()
	require.NoError(t, err)
	assert.Equal(t, qas, items)

	_, rendered := f.storefront.FAQs(shop, product.ID)
	assert.False(t, rendered)

	row, err = f.svc.Unpublish(ctx, shop, product.ID)
	require.NoError(t, err)
	assert.False(t, row.IsPublished)

	_, err = f.svc.Unpublish(ctx, shop, "gid://shopify/Product/404")
	assert.ErrorIs(t, err, domain.ErrFAQNotFound)
	_, err = f.svc.Unpublish(ctx, "", product.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidShop)
	_, err = f.svc.Unpublish(ctx, shop, " ")
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)
}

// limitGuard allows publishing while fewer than limit products are live.
type limitGuard struct {
	limit int64
	count func(ctx context.Context, shop string) (int64, error)
}

func (g *limitGuard) CanPerform(ctx context.Context, shop string, action entitlementdomain.Action) (entitlementdomain.Decision, error) {
	n, err := g.count(ctx, shop)
	if err != nil {
		return entitlementdomain.Decision{}, err
	}
	if n >= g.limit {
		return denied(action, "You've reached the 1-product limit on the Free plan."), nil
	}
	return allowed(action), nil
}

func (g *limitGuard) Summary(ctx context.Context, shop string) (entitlementdomain.Summary, error) {
	return entitlementdomain.Summary{}, nil
}

func TestUnpublish_FreesSlotForAnotherProduct(t *testing.T) {
	guard := &limitGuard{limit: 1}
	f := setupWithGuard(t, guard)
	guard.count = f.svc.CountPublished
	ctx := context.Background()
	second := "gid://shopify/Product/2"

	for i := 0; i < 5; i++ {
		_, err := f.svc.Publish(ctx, shop, product.ID, qas)
		require.NoError(t, err, "cycle %d publish", i)
		_, err = f.svc.Publish(ctx, shop, product.ID, qas)
		require.NoError(t, err, "cycle %d republish", i)

		n, err := f.svc.CountPublished(ctx, shop)
		require.NoError(t, err)
		assert.LessOrEqual(t, n, int64(1))

		_, err = f.svc.Publish(ctx, shop, second, qas)
		_, ok := entitlementdomain.AsDenied(err)
		assert.True(t, ok, "cycle %d second product", i)

		_, err = f.svc.Unpublish(ctx, shop, product.ID)
		require.NoError(t, err, "cycle %d unpublish", i)
		n, err = f.svc.CountPublished(ctx, shop)
		require.NoError(t, err)
		assert.Zero(t, n)
	}

	_, err := f.svc.Publish(ctx, shop, second, qas)
	require.NoError(t, err)
	n, err := f.svc.CountPublished(ctx, shop)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPublish_EmptyFAQs(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Publish(context.Background(), shop, product.ID, []domain.QA{{Question: " ", Answer: ""}})
	assert.ErrorIs(t, err, domain.ErrEmptyFAQs)
}

func TestDelete_ClearsStorefrontAndRecord(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.guard.On("CanPerform", mock.Anything, shop, entitlementdomain.ActionPublishFAQ).Return(allowed(entitlementdomain.ActionPublishFAQ), nil)

	_, err := f.svc.Publish(ctx, shop, product.ID, qas)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, shop, product.ID))
	_, rendered := f.storefront.FAQs(shop, product.ID)
	assert.False(t, rendered)

	_, err = f.svc.Get(ctx, shop, product.ID)
	assert.ErrorIs(t, err, domain.ErrFAQNotFound)
	require.NoError(t, f.svc.Delete(ctx, shop, product.ID))
}

func TestPurgeShop_RemovesOnlyThatShop(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	other := "other.myshopify.com"
	f.guard.On("CanPerform", mock.Anything, mock.Anything, entitlementdomain.ActionPublishFAQ).Return(allowed(entitlementdomain.ActionPublishFAQ), nil)

	_, err := f.svc.Publish(ctx, shop, product.ID, qas)
	require.NoError(t, err)
	_, err = f.svc.Publish(ctx, other, product.ID, qas)
	require.NoError(t, err)

	require.NoError(t, f.svc.PurgeShop(ctx, shop))

	rows, err := f.svc.List(ctx, shop)
	require.NoError(t, err)
	assert.Empty(t, rows)
	rows, err = f.svc.List(ctx, other)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
