package services

import (
	"context"
	"log/slog"
	"sync"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// Store runs units of work against the database. *storage.Repository
// satisfies it.
type Store interface {
	InTx(ctx context.Context, fn func(q *storage.Queries) error) error
	Queries() *storage.Queries
}

// ChangeListener is told about every committed mutation.
type ChangeListener interface {
	OnChange(ctx context.Context, c core.Change)
}

type ChangeListenerFunc func(ctx context.Context, c core.Change)

func (f ChangeListenerFunc) OnChange(ctx context.Context, c core.Change) {
	f(ctx, c)
}

// Notifier fans a change out to its listeners in subscription order.
type Notifier struct {
	mu        sync.RWMutex
	listeners []ChangeListener
}

func NewNotifier(listeners ...ChangeListener) *Notifier {
	return &Notifier{listeners: listeners}
}

func (n *Notifier) Subscribe(l ChangeListener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, l)
}

// Notify is a no-op on a nil Notifier.
func (n *Notifier) Notify(ctx context.Context, c core.Change) {
	if n == nil {
		return
	}
	n.mu.RLock()
	listeners := append([]ChangeListener(nil), n.listeners...)
	n.mu.RUnlock()

	for _, l := range listeners {
		l.OnChange(ctx, c)
	}
}

// ChangePublisher sends changes to an external bus.
type ChangePublisher interface {
	PublishChange(ctx context.Context, c core.Change) error
}

// PublishListener forwards changes to a publisher. The mutation is
// already committed, so publish failures are only logged.
func PublishListener(p ChangePublisher) ChangeListener {
	return ChangeListenerFunc(func(ctx context.Context, c core.Change) {
		if p == nil {
			return
		}
		if err := p.PublishChange(ctx, c); err != nil {
			slog.ErrorContext(ctx, "Failed to publish change event",
				"event_kind", string(c.Kind), "transaction_id", c.TransactionID, "error", err)
		}
	})
}
