// Package testutil builds throwaway databases and fakes for package tests.
package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/models"
)

// NewDB opens a private in-memory sqlite database with the schema migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := db.Open(context.Background(), "sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

func SeedProduct(t *testing.T, gdb *gorm.DB, name, price string) models.Product {
	t.Helper()

	p := models.Product{Name: name, Description: name + " description", Price: decimal.RequireFromString(price)}
	require.NoError(t, gdb.Create(&p).Error)
	return p
}

func SeedPromo(t *testing.T, gdb *gorm.DB, code, discount string) models.PromotionCode {
	t.Helper()

	p := models.PromotionCode{Code: code, DiscountAmount: decimal.RequireFromString(discount)}
	require.NoError(t, gdb.Create(&p).Error)
	return p
}

type Event struct {
	Topic string
	Key   string
	Body  any
}

// Publisher records events instead of sending them.
type Publisher struct {
	mu     sync.Mutex
	Events []Event
}

func (p *Publisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, Event{Topic: topic, Key: key, Body: event})
	return nil
}

func (p *Publisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.Events))
	for _, e := range p.Events {
		out = append(out, e.Topic)
	}
	return out
}

// Notifier records receipts; Err makes every send fail.
type Notifier struct {
	mu     sync.Mutex
	Orders []uint
	Err    error
}

func (n *Notifier) SendReceipt(_ context.Context, order *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Orders = append(n.Orders, order.ID)
	return nil
}

func (n *Notifier) Sent() []uint {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]uint(nil), n.Orders...)
}
