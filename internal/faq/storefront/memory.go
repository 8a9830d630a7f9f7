package storefront

import (
	"context"
	"sync"

	"github.com/railzwaylabs/shopfaq/internal/faq/domain"
)

// Memory keeps metafields in process. It backs development and tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string][]domain.QA
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string][]domain.QA)}
}

func (m *Memory) SaveFAQs(ctx context.Context, shop, productID string, faqs []domain.QA) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	products, ok := m.data[shop]
	if !ok {
		products = make(map[string][]domain.QA)
		m.data[shop] = products
	}
	products[productID] = append([]domain.QA(nil), faqs...)
	return nil
}

func (m *Memory) DeleteFAQs(ctx context.Context, shop, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data[shop], productID)
	return nil
}

// FAQs returns what the storefront currently renders for productID.
func (m *Memory) FAQs(shop, productID string) ([]domain.QA, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	faqs, ok := m.data[shop][productID]
	return append([]domain.QA(nil), faqs...), ok
}
