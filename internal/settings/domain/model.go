package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type AIProvider string

const (
	ProviderOpenAI    AIProvider = "openai"
	ProviderAnthropic AIProvider = "anthropic"
)

const (
	DefaultFAQCount = 5
	MinFAQCount     = 1
	MaxFAQCount     = 20
)

type ModelOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// DefaultModels lists the selectable models per provider. The first entry
// is the provider default.
var DefaultModels = map[AIProvider][]ModelOption{
	ProviderOpenAI: {
		{Value: "gpt-4o", Label: "GPT-4o (Recommended)"},
		{Value: "gpt-4o-mini", Label: "GPT-4o Mini (Faster & Cheaper)"},
		{Value: "gpt-4-turbo", Label: "GPT-4 Turbo"},
		{Value: "gpt-3.5-turbo", Label: "GPT-3.5 Turbo (Budget)"},
	},
	ProviderAnthropic: {
		{Value: "claude-3-5-sonnet-20241022", Label: "Claude 3.5 Sonnet (Recommended)"},
		{Value: "claude-3-5-haiku-20241022", Label: "Claude 3.5 Haiku (Faster & Cheaper)"},
		{Value: "claude-3-opus-20240229", Label: "Claude 3 Opus (Most Powerful)"},
	},
}

func (p AIProvider) Valid() bool {
	_, ok := DefaultModels[p]
	return ok
}

func (p AIProvider) DefaultModel() string {
	if models := DefaultModels[p]; len(models) > 0 {
		return models[0].Value
	}
	return DefaultModels[ProviderOpenAI][0].Value
}

// ShopSettings is stored with APIKey encrypted. Service reads return it
// decrypted; it is never serialized.
type ShopSettings struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"-"`
	Shop         string       `gorm:"not null;size:255;uniqueIndex:ux_shop_settings_shop" json:"shop"`
	AIProvider   AIProvider   `gorm:"column:ai_provider;not null;size:32" json:"ai_provider"`
	Model        string       `gorm:"not null;size:128" json:"model"`
	FAQCount     int          `gorm:"column:faq_count;not null" json:"faq_count"`
	AutoGenerate bool         `gorm:"not null" json:"auto_generate"`
	APIKey       string       `gorm:"column:api_key;type:text" json:"-"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`
}

func (ShopSettings) TableName() string {
	return "shop_settings"
}

func (s ShopSettings) HasAPIKey() bool {
	return s.APIKey != ""
}

// Defaults is what a shop without stored settings sees.
func Defaults(shop string) ShopSettings {
	return ShopSettings{
		Shop:       shop,
		AIProvider: ProviderOpenAI,
		Model:      ProviderOpenAI.DefaultModel(),
		FAQCount:   DefaultFAQCount,
	}
}

type SaveRequest struct {
	AIProvider   AIProvider `json:"ai_provider"`
	Model        string     `json:"model"`
	FAQCount     int        `json:"faq_count"`
	AutoGenerate bool       `json:"auto_generate"`
	// APIKey replaces the stored key only when non-empty.
	APIKey string `json:"api_key"`
}

type Repository interface {
	FindByShop(ctx context.Context, db *gorm.DB, shop string) (*ShopSettings, error)
	Upsert(ctx context.Context, db *gorm.DB, s *ShopSettings) error
	Delete(ctx context.Context, db *gorm.DB, shop string) error
}

type Service interface {
	Get(ctx context.Context, shop string) (ShopSettings, error)
	Save(ctx context.Context, shop string, req SaveRequest) (ShopSettings, error)
	Delete(ctx context.Context, shop string) error
}

var (
	ErrInvalidShop     = errors.New("invalid_shop")
	ErrInvalidProvider = errors.New("invalid_ai_provider")
	ErrInvalidFAQCount = errors.New("invalid_faq_count")
)
