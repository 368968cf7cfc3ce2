package cartstore

import (
	"encoding/json"
	"errors"
	"sync"

	"cart-gateway/models"
	"cart-gateway/storage"

	"github.com/sirupsen/logrus"
)

// CartKey is the well-known key the guest cart is persisted under.
const CartKey = "guest_cart"

// Store provides synchronous CRUD over the guest cart with the total kept
// accurate on every mutation. It is a convenience cache, not a system of
// record: a failing storage backend is logged and the computed in-memory
// cart is still returned, and a corrupt persisted value reads as the empty
// cart. The store emits no events; callers announce changes on the bus.
//
// The mutex only serializes read-modify-write cycles within this process.
// Sibling processes sharing the same backend race and the later write wins.
type Store struct {
	mu  sync.Mutex
	kv  storage.Store
	log *logrus.Entry
}

func New(kv storage.Store) *Store {
	return &Store{
		kv:  kv,
		log: logrus.WithField("component", "cartstore"),
	}
}

// GetCart returns the persisted cart, or the empty cart when nothing is
// persisted or the persisted value is unreadable.
func (s *Store) GetCart() models.LocalCart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// AddItem increments the quantity of an existing line for the product, or
// appends a new line. Quantities below one count as one.
func (s *Store) AddItem(productID, productName string, price float64, quantity int) models.LocalCart {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.load()
	found := false
	for i, line := range cart.Items {
		if line.ProductID == productID {
			cart.Items[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		cart.Items = append(cart.Items, models.CartLine{
			ProductID:   productID,
			ProductName: productName,
			Price:       price,
			Quantity:    quantity,
		})
	}

	recompute(&cart)
	s.persist(cart)
	return cart
}

// UpdateItemQuantity sets (not increments) the quantity of the line for the
// product. A quantity below one removes the line. Lines that don't exist
// are left alone.
func (s *Store) UpdateItemQuantity(productID string, quantity int) models.LocalCart {
	if quantity < 1 {
		return s.RemoveItem(productID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.load()
	changed := false
	for i, line := range cart.Items {
		if line.ProductID == productID {
			cart.Items[i].Quantity = quantity
			changed = true
			break
		}
	}
	if !changed {
		return cart
	}

	recompute(&cart)
	s.persist(cart)
	return cart
}

// RemoveItem drops the line for the product. Absent lines are not an error.
func (s *Store) RemoveItem(productID string) models.LocalCart {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.load()
	kept := cart.Items[:0]
	removed := false
	for _, line := range cart.Items {
		if line.ProductID == productID {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	if !removed {
		return cart
	}
	cart.Items = kept

	recompute(&cart)
	s.persist(cart)
	return cart
}

// ClearCart deletes the persisted cart entirely.
func (s *Store) ClearCart() models.LocalCart {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(CartKey); err != nil {
		s.log.WithError(err).Warn("failed to delete persisted cart")
	}
	return models.EmptyCart()
}

// ItemCount sums the quantities across the persisted cart's lines.
func (s *Store) ItemCount() int {
	return s.GetCart().ItemCount()
}

func (s *Store) load() models.LocalCart {
	data, err := s.kv.Get(CartKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.WithError(err).Warn("failed to read persisted cart, treating as empty")
		}
		return models.EmptyCart()
	}

	var cart models.LocalCart
	if err := json.Unmarshal(data, &cart); err != nil {
		s.log.WithError(err).Warn("persisted cart is malformed, treating as empty")
		return models.EmptyCart()
	}
	if cart.Items == nil {
		cart.Items = []models.CartLine{}
	}
	return cart
}

func (s *Store) persist(cart models.LocalCart) {
	data, err := json.Marshal(cart)
	if err != nil {
		s.log.WithError(err).Warn("failed to serialize cart, write dropped")
		return
	}
	if err := s.kv.Set(CartKey, data); err != nil {
		s.log.WithError(err).Warn("failed to persist cart, write dropped")
	}
}

// recompute makes every subtotal and the total consistent with the lines.
func recompute(cart *models.LocalCart) {
	total := 0.0
	for i := range cart.Items {
		cart.Items[i].Subtotal = cart.Items[i].Price * float64(cart.Items[i].Quantity)
		total += cart.Items[i].Subtotal
	}
	cart.TotalPrice = total
}
