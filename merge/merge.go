package merge

import (
	"context"

	"cart-gateway/cartstore"
	"cart-gateway/models"

	"github.com/sirupsen/logrus"
)

// CartAPI is the one backend call the merge needs.
type CartAPI interface {
	AddItem(ctx context.Context, token, productID string, quantity int) (models.RemoteCart, error)
}

// Report summarizes one merge run.
type Report struct {
	Attempted int
	Merged    int
	// FailedProducts lists product IDs whose add call failed, in cart order.
	FailedProducts []string
}

// Partial reports whether some lines could not be merged.
func (r Report) Partial() bool {
	return len(r.FailedProducts) > 0
}

// Merger folds the guest cart into the remote cart exactly once, at the
// moment a login succeeds.
type Merger struct {
	store        *cartstore.Store
	api          CartAPI
	eligibleRole string
	log          *logrus.Entry
}

func New(store *cartstore.Store, api CartAPI, eligibleRole string) *Merger {
	return &Merger{
		store:        store,
		api:          api,
		eligibleRole: eligibleRole,
		log:          logrus.WithField("component", "cart-merge"),
	}
}

// MergeGuestCart copies every guest cart line into the remote cart, one add
// call per line in list order, each awaited before the next so final remote
// quantities are deterministic. Only when every line merges is the guest
// cart cleared; on any failure the guest cart is left untouched so the
// unmerged remainder is not silently lost. Roles without a cart concept
// skip the merge entirely. Failures never propagate: login success is not
// blocked by a merge failure.
func (m *Merger) MergeGuestCart(ctx context.Context, token, role string) Report {
	if role != m.eligibleRole {
		m.log.WithField("role", role).Debug("role has no cart, skipping merge")
		return Report{}
	}

	cart := m.store.GetCart()
	if len(cart.Items) == 0 {
		return Report{}
	}

	report := Report{Attempted: len(cart.Items)}
	for _, line := range cart.Items {
		if _, err := m.api.AddItem(ctx, token, line.ProductID, line.Quantity); err != nil {
			m.log.WithError(err).WithField("productId", line.ProductID).
				Warn("failed to merge cart line")
			report.FailedProducts = append(report.FailedProducts, line.ProductID)
			continue
		}
		report.Merged++
	}

	if report.Partial() {
		m.log.Warnf("merged %d of %d guest cart lines, keeping guest cart", report.Merged, report.Attempted)
		return report
	}

	m.store.ClearCart()
	m.log.Infof("merged %d guest cart lines into remote cart", report.Merged)
	return report
}
