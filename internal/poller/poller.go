package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/fjod/storefront/internal/cartsync"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/session"
)

const (
	Topic   = "checkout-completed"
	GroupID = "storefront"
)

// CheckoutCompleted is published once the platform has taken payment for a
// cart.
type CheckoutCompleted struct {
	CartID    string `json:"cart_id"`
	SessionID string `json:"session_id,omitempty"`
}

var ErrInvalidEvent = errors.New("invalid checkout event")

// Sessions finds the live sessions an event applies to.
type Sessions interface {
	Lookup(id string) (*session.Session, bool)
	ByCart(cartID string) []*session.Session
}

// Poller empties the cached carts of sessions whose checkout completed.
type Poller struct {
	sessions Sessions
	reader   *kafka.Reader
}

func NewPoller(sessions Sessions, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    Topic,
		GroupID:  GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{sessions: sessions, reader: reader}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.readAndClear(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		logger.Printf(context.Background(), "error closing reader: %v", err)
	}
}

func (p *Poller) readAndClear(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Printf(ctx, "error reading message: %v", err)
		}
		return
	}
	if _, err := p.Handle(ctx, m.Value); err != nil {
		logger.Printf(ctx, "skip message at offset %d: %v", m.Offset, err)
	}
}

// Handle clears the cart of every session the event matches and returns the
// started clears. Sessions that are not live in this process are ignored.
func (p *Poller) Handle(ctx context.Context, value []byte) ([]*cartsync.Mutation, error) {
	var ev CheckoutCompleted
	if err := json.Unmarshal(value, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if ev.CartID == "" && ev.SessionID == "" {
		return nil, fmt.Errorf("%w: missing cart_id and session_id", ErrInvalidEvent)
	}

	targets := make(map[string]*session.Session)
	if ev.SessionID != "" {
		if s, ok := p.sessions.Lookup(ev.SessionID); ok {
			targets[s.ID] = s
		}
	}
	if ev.CartID != "" {
		for _, s := range p.sessions.ByCart(ev.CartID) {
			targets[s.ID] = s
		}
	}

	var started []*cartsync.Mutation
	for _, s := range targets {
		if s.Cart == nil {
			continue
		}
		started = append(started, s.Cart.Clear(ctx))
	}
	return started, nil
}
