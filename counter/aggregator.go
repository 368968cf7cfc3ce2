package counter

import (
	"context"
	"sync"
	"time"

	"cart-gateway/cartstore"
	"cart-gateway/events"
	"cart-gateway/models"
	"cart-gateway/session"

	"github.com/sirupsen/logrus"
)

// RemoteFetcher is the one call the aggregator needs from the cart backend.
type RemoteFetcher interface {
	FetchCart(ctx context.Context, token string) (models.RemoteCart, error)
}

// Aggregator derives the single displayed item count from whichever cart is
// authoritative. One goroutine recomputes on a fixed set of triggers: start,
// a local cart mutation, a session being established, a storage change from
// another process, a coarse poll tick while a session is active, and manual
// Refresh calls. Overlapping triggers resolve last-write-wins; a stale count
// self-corrects on the next trigger.
type Aggregator struct {
	store    *cartstore.Store
	sessions *session.Manager
	remote   RemoteFetcher
	bus      *events.Bus
	interval time.Duration
	log      *logrus.Entry

	refresh chan struct{}

	mu     sync.RWMutex
	count  int
	source session.CartSource
}

func New(store *cartstore.Store, sessions *session.Manager, remote RemoteFetcher, bus *events.Bus, interval time.Duration) *Aggregator {
	return &Aggregator{
		store:    store,
		sessions: sessions,
		remote:   remote,
		bus:      bus,
		interval: interval,
		log:      logrus.WithField("component", "cart-counter"),
		refresh:  make(chan struct{}, 1),
		source:   session.SourceLocal,
	}
}

// Count returns the most recently derived item count.
func (a *Aggregator) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.count
}

// Source returns the cart source the current count was derived from.
func (a *Aggregator) Source() session.CartSource {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.source
}

// Refresh forces a recompute on the next loop iteration. Callers that just
// performed a mutation use it instead of waiting for a passive trigger.
func (a *Aggregator) Refresh() {
	select {
	case a.refresh <- struct{}{}:
	default:
	}
}

// Run recomputes until the context is cancelled. The poll tick only fetches
// while a session is active; guest counts change solely through the bus.
func (a *Aggregator) Run(ctx context.Context) {
	notifications := a.bus.Subscribe(
		events.TopicLocalCartChanged,
		events.TopicSessionEstablished,
		events.TopicStorageChanged,
	)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.recompute(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-notifications:
			a.recompute(ctx)
		case <-a.refresh:
			a.recompute(ctx)
		case <-ticker.C:
			if !a.sessions.Active() {
				continue
			}
			a.recompute(ctx)
		}
	}
}

// recompute derives the count once. A remote fetch failure degrades to the
// local sum rather than surfacing an error state.
func (a *Aggregator) recompute(ctx context.Context) {
	count, source := a.computeCount(ctx)

	a.mu.Lock()
	a.count = count
	a.source = source
	a.mu.Unlock()
}

func (a *Aggregator) computeCount(ctx context.Context) (int, session.CartSource) {
	token, ok := a.sessions.Token()
	if !ok {
		return a.store.ItemCount(), session.SourceLocal
	}

	cart, err := a.remote.FetchCart(ctx, token)
	if err != nil {
		a.log.WithError(err).Debug("remote cart fetch failed, falling back to local count")
		return a.store.ItemCount(), session.SourceLocal
	}
	return cart.ItemCount(), session.SourceRemote
}
