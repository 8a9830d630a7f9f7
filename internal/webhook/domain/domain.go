package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Topic string

const (
	TopicAppUninstalled      Topic = "app/uninstalled"
	TopicSubscriptionsUpdate Topic = "app_subscriptions/update"
	TopicProductsUpdate      Topic = "products/update"
)

const (
	HeaderTopic     = "X-Webhook-Topic"
	HeaderShop      = "X-Webhook-Shop-Domain"
	HeaderEventID   = "X-Webhook-Event-Id"
	HeaderSignature = "X-Webhook-Hmac-Sha256"
)

// Event is one accepted delivery. The (topic, event_id) pair is unique, so a
// redelivered event is recognised and acknowledged without side effects.
type Event struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	Topic       Topic          `gorm:"not null;size:64;uniqueIndex:ux_webhook_events_topic_event" json:"topic"`
	EventID     string         `gorm:"column:event_id;not null;size:255;uniqueIndex:ux_webhook_events_topic_event" json:"event_id"`
	Shop        string         `gorm:"not null;size:255;index" json:"shop"`
	Payload     datatypes.JSON `gorm:"not null" json:"payload"`
	ReceivedAt  time.Time      `gorm:"not null" json:"received_at"`
	ProcessedAt *time.Time     `json:"processed_at"`
}

func (Event) TableName() string {
	return "webhook_events"
}

type Result struct {
	Topic     Topic `json:"topic"`
	Duplicate bool  `json:"duplicate"`
}

type Repository interface {
	// Record inserts event unless its (topic, event_id) exists and returns
	// the stored row either way.
	Record(ctx context.Context, db *gorm.DB, event *Event) (*Event, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}

type Service interface {
	Ingest(ctx context.Context, payload []byte, headers http.Header) (Result, error)
}

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidShop      = errors.New("invalid_shop")
	ErrUnhandledTopic   = errors.New("unhandled_topic")
	ErrNotConfigured    = errors.New("webhook_secret_not_configured")
	ErrShopMismatch     = errors.New("webhook_shop_mismatch")
)
