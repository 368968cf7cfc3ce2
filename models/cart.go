package models

// CartLine is one product's presence in a cart. Name and price are snapshots
// taken at add time and are not re-fetched afterwards.
type CartLine struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Subtotal    float64 `json:"subtotal"`
}

// LocalCart is the guest cart aggregate persisted by the local store.
// TotalPrice is always recomputed from the lines before the cart is
// persisted or returned.
type LocalCart struct {
	Items      []CartLine `json:"items"`
	TotalPrice float64    `json:"totalPrice"`
}

// EmptyCart returns the canonical empty cart.
func EmptyCart() LocalCart {
	return LocalCart{Items: []CartLine{}, TotalPrice: 0}
}

// ItemCount sums the quantities across all lines.
func (c LocalCart) ItemCount() int {
	count := 0
	for _, line := range c.Items {
		count += line.Quantity
	}
	return count
}

// RemoteCart is the backend-owned cart for an authenticated user. The
// gateway only reads and appends to it through the cart backend API.
type RemoteCart struct {
	Items      []RemoteCartItem `json:"items"`
	TotalPrice float64          `json:"totalPrice"`
}

// RemoteCartItem tolerates both "price" and "unitPrice" spellings seen in
// backend responses.
type RemoteCartItem struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	UnitPrice float64 `json:"unitPrice"`
	Subtotal  float64 `json:"subtotal"`
}

// ItemCount sums the quantities across all items. Missing or negative
// quantities count as zero so a malformed entry never breaks the total.
func (c RemoteCart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		if item.Quantity > 0 {
			count += item.Quantity
		}
	}
	return count
}
