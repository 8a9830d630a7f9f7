package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Product is the storefront data a generator works from.
type Product struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	ProductType string      `json:"product_type,omitempty"`
	Vendor      string      `json:"vendor,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Variants    []Variant   `json:"variants,omitempty"`
	Options     []Option    `json:"options,omitempty"`
	Metafields  []Metafield `json:"metafields,omitempty"`
	Reviews     []Review    `json:"reviews,omitempty"`
}

type Variant struct {
	Title             string `json:"title"`
	Price             string `json:"price,omitempty"`
	SKU               string `json:"sku,omitempty"`
	Weight            string `json:"weight,omitempty"`
	WeightUnit        string `json:"weight_unit,omitempty"`
	InventoryQuantity *int   `json:"inventory_quantity,omitempty"`
}

type Option struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type Metafield struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

type Review struct {
	Body   string `json:"body"`
	Rating int    `json:"rating"`
}

// ProductFAQ is the FAQ set of one product. Published rows count against the
// plan's product limit.
type ProductFAQ struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	Shop        string         `gorm:"not null;size:255;uniqueIndex:ux_product_faqs_shop_product;index:ix_product_faqs_shop_published" json:"shop"`
	ProductID   string         `gorm:"column:product_id;not null;size:255;uniqueIndex:ux_product_faqs_shop_product" json:"product_id"`
	FAQs        datatypes.JSON `gorm:"column:faqs;not null" json:"faqs"`
	IsPublished bool           `gorm:"column:is_published;not null;index:ix_product_faqs_shop_published" json:"is_published"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (ProductFAQ) TableName() string {
	return "product_faqs"
}

func (p *ProductFAQ) Items() ([]QA, error) {
	if len(p.FAQs) == 0 {
		return nil, nil
	}
	var qas []QA
	if err := json.Unmarshal(p.FAQs, &qas); err != nil {
		return nil, err
	}
	return qas, nil
}

func (p *ProductFAQ) SetItems(qas []QA) error {
	raw, err := json.Marshal(qas)
	if err != nil {
		return err
	}
	p.FAQs = datatypes.JSON(raw)
	return nil
}

// CleanQAs trims entries and drops those without both a question and an
// answer.
func CleanQAs(in []QA) []QA {
	out := make([]QA, 0, len(in))
	for _, qa := range in {
		q, a := strings.TrimSpace(qa.Question), strings.TrimSpace(qa.Answer)
		if q == "" || a == "" {
			continue
		}
		out = append(out, QA{Question: q, Answer: a})
	}
	return out
}

var (
	ErrInvalidShop    = errors.New("invalid_shop")
	ErrInvalidProduct = errors.New("invalid_product")
	ErrEmptyFAQs      = errors.New("empty_faqs")
	ErrFAQNotFound    = errors.New("faq_not_found")
	ErrMissingAPIKey  = errors.New("missing_api_key")

	ErrGeneratorAuth            = errors.New("generator_auth_failed")
	ErrGeneratorRateLimited     = errors.New("generator_rate_limited")
	ErrGeneratorRequestRejected = errors.New("generator_request_rejected")
	ErrGeneratorUnavailable     = errors.New("generator_unavailable")
	ErrGeneratorInvalidOutput   = errors.New("generator_invalid_output")
)
