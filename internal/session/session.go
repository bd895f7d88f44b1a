// Package session holds the per-visitor state that survives between requests: the cart the
// visitor is filling, the promotion code they applied, the orders they placed and any notices
// waiting to be shown.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// ErrCorrupt is returned for stored data that cannot be decoded. It matches ErrNotFound.
var ErrCorrupt = fmt.Errorf("%w: undecodable data", ErrNotFound)

const maxRememberedOrders = 20

type Session struct {
	ID               string     `json:"-"`
	CartID           *uuid.UUID `json:"cart_id,omitempty"`
	AppliedPromoCode string     `json:"applied_promo_code,omitempty"`
	OrderIDs         []uint     `json:"order_ids,omitempty"`
	Notices          []string   `json:"notices,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

func New() *Session {
	return WithID(uuid.NewString())
}

func WithID(id string) *Session {
	return &Session{ID: id, CreatedAt: time.Now().UTC()}
}

func (s *Session) SetCart(id uuid.UUID) {
	s.CartID = &id
}

func (s *Session) ForgetCart() {
	s.CartID = nil
}

func (s *Session) ApplyPromo(code string) {
	s.AppliedPromoCode = code
}

func (s *Session) ClearPromo() {
	s.AppliedPromoCode = ""
}

// RememberOrder keeps the most recent order ids so the visitor can open their confirmations.
func (s *Session) RememberOrder(id uint) {
	s.OrderIDs = append(s.OrderIDs, id)
	if len(s.OrderIDs) > maxRememberedOrders {
		s.OrderIDs = s.OrderIDs[len(s.OrderIDs)-maxRememberedOrders:]
	}
}

func (s *Session) OwnsOrder(id uint) bool {
	return slices.Contains(s.OrderIDs, id)
}

func (s *Session) AddNotice(msg string) {
	s.Notices = append(s.Notices, msg)
}

func (s *Session) PopNotices() []string {
	out := s.Notices
	s.Notices = nil
	if out == nil {
		return []string{}
	}
	return out
}
