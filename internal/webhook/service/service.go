package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	billingdomain "github.com/railzwaylabs/shopfaq/internal/billing/domain"
	"github.com/railzwaylabs/shopfaq/internal/clock"
	"github.com/railzwaylabs/shopfaq/internal/config"
	faqdomain "github.com/railzwaylabs/shopfaq/internal/faq/domain"
	"github.com/railzwaylabs/shopfaq/internal/observability"
	settingsdomain "github.com/railzwaylabs/shopfaq/internal/settings/domain"
	"github.com/railzwaylabs/shopfaq/internal/shopcontext"
	"github.com/railzwaylabs/shopfaq/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	Clock    clock.Clock
	Repo     domain.Repository
	Billing  billingdomain.Service
	FAQs     faqdomain.Service
	Settings settingsdomain.Service
	Metrics  *observability.Metrics
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	secret     string
	production bool
	clock      clock.Clock
	repo       domain.Repository
	billing    billingdomain.Service
	faqs       faqdomain.Service
	settings   settingsdomain.Service
	metrics    *observability.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("webhook.service"),
		secret:     p.Cfg.Webhook.Secret,
		production: p.Cfg.App.IsProduction(),
		clock:      p.Clock,
		repo:       p.Repo,
		billing:    p.Billing,
		faqs:       p.FAQs,
		settings:   p.Settings,
		metrics:    p.Metrics,
	}
}

func (s *Service) Ingest(ctx context.Context, payload []byte, headers http.Header) (domain.Result, error) {
	if err := s.verify(payload, headers); err != nil {
		return domain.Result{}, err
	}
	if !json.Valid(payload) {
		return domain.Result{}, domain.ErrInvalidPayload
	}

	topic := domain.Topic(strings.ToLower(strings.TrimSpace(headers.Get(domain.HeaderTopic))))
	result := domain.Result{Topic: topic}
	switch topic {
	case domain.TopicAppUninstalled, domain.TopicSubscriptionsUpdate, domain.TopicProductsUpdate:
	default:
		s.observe(topic, "unhandled")
		return result, domain.ErrUnhandledTopic
	}

	shop, ok := shopcontext.Normalize(headers.Get(domain.HeaderShop))
	if !ok {
		return result, domain.ErrInvalidShop
	}
	if claimed, ok := payloadShop(payload); ok && claimed != shop {
		s.log.Warn("webhook shop mismatch",
			zap.String("topic", string(topic)),
			zap.String("header_shop", shop),
			zap.String("payload_shop", claimed))
		s.observe(topic, "rejected")
		return result, domain.ErrShopMismatch
	}

	event, err := s.repo.Record(ctx, s.db, &domain.Event{
		Topic:      topic,
		EventID:    eventID(payload, headers),
		Shop:       shop,
		Payload:    datatypes.JSON(maskPayload(payload)),
		ReceivedAt: s.clock.Now(ctx).UTC(),
	})
	if err != nil {
		return result, err
	}
	if event.ProcessedAt != nil {
		s.log.Debug("duplicate webhook acknowledged",
			zap.String("topic", string(topic)),
			zap.String("shop", shop),
			zap.String("event_id", event.EventID))
		s.observe(topic, "duplicate")
		result.Duplicate = true
		return result, nil
	}

	s.log.Info("processing webhook",
		zap.String("topic", string(topic)),
		zap.String("shop", shop),
		zap.Int("payload_size", len(payload)))

	if err := s.handle(ctx, topic, shop); err != nil {
		s.log.Error("webhook processing failed",
			zap.String("topic", string(topic)),
			zap.String("shop", shop),
			zap.Error(err))
		s.observe(topic, "error")
		return result, err
	}

	if err := s.repo.MarkProcessed(ctx, s.db, event.ID, s.clock.Now(ctx).UTC()); err != nil {
		return result, err
	}
	s.observe(topic, "processed")
	return result, nil
}

func (s *Service) handle(ctx context.Context, topic domain.Topic, shop string) error {
	switch topic {
	case domain.TopicAppUninstalled:
		// Usage history is kept for audit.
		if err := s.settings.Delete(ctx, shop); err != nil {
			return fmt.Errorf("purge settings: %w", err)
		}
		if err := s.faqs.PurgeShop(ctx, shop); err != nil {
			return fmt.Errorf("purge faqs: %w", err)
		}
		if err := s.billing.PurgeShop(ctx, shop); err != nil {
			return fmt.Errorf("purge subscription: %w", err)
		}
		return nil
	case domain.TopicSubscriptionsUpdate:
		_, err := s.billing.SyncSubscription(ctx, shop)
		return err
	case domain.TopicProductsUpdate:
		return nil
	}
	return domain.ErrUnhandledTopic
}

func (s *Service) verify(payload []byte, headers http.Header) error {
	if s.secret == "" {
		if s.production {
			return domain.ErrNotConfigured
		}
		return nil
	}

	signature := strings.TrimSpace(headers.Get(domain.HeaderSignature))
	if signature == "" {
		return domain.ErrInvalidSignature
	}
	if !hmac.Equal([]byte(signature), []byte(Sign(s.secret, payload))) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (s *Service) observe(topic domain.Topic, result string) {
	if s.metrics == nil {
		return
	}
	label := string(topic)
	if result == "unhandled" {
		// Unknown topics are sender controlled; keep label cardinality fixed.
		label = "other"
	}
	s.metrics.WebhookEvents.WithLabelValues(label, result).Inc()
}

// eventID falls back to a digest of the body when the sender omits the id
// header, so identical redeliveries still collapse.
func eventID(payload []byte, headers http.Header) string {
	if id := strings.TrimSpace(headers.Get(domain.HeaderEventID)); id != "" {
		return id
	}
	sum := sha256.Sum256(payload)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// Sign returns the signature header value for payload.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// payloadShop returns the shop domain the payload names about itself. The
// header is outside the signed body, so a payload that names another shop
// is rejected.
func payloadShop(raw []byte) (string, bool) {
	var body struct {
		MyshopifyDomain string `json:"myshopify_domain"`
		ShopDomain      string `json:"shop_domain"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", false
	}
	for _, v := range []string{body.MyshopifyDomain, body.ShopDomain} {
		if strings.TrimSpace(v) == "" {
			continue
		}
		shop, ok := shopcontext.Normalize(v)
		if !ok {
			return strings.ToLower(strings.TrimSpace(v)), true
		}
		return shop, true
	}
	return "", false
}

func maskPayload(raw []byte) []byte {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw
	}
	maskMap(obj)
	masked, err := json.Marshal(obj)
	if err != nil {
		return raw
	}
	return masked
}

func maskMap(m map[string]any) {
	for k, v := range m {
		switch strings.ToLower(k) {
		case "email", "phone", "customer_email", "shop_owner":
			m[k] = "***"
		default:
			if nested, ok := v.(map[string]any); ok {
				maskMap(nested)
			} else if arr, ok := v.([]any); ok {
				for _, item := range arr {
					if itemMap, ok := item.(map[string]any); ok {
						maskMap(itemMap)
					}
				}
			}
		}
	}
}
