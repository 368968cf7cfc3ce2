package models

type AddItemRequest struct {
	ProductID   string  `json:"productId" binding:"required"`
	ProductName string  `json:"productName"`
	Price       float64 `json:"price" binding:"min=0"`
	Quantity    int     `json:"quantity" binding:"min=0"`
}

// UpdateQuantityRequest uses a pointer so that an explicit zero (remove the
// line) can be told apart from a missing field.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type CountResponse struct {
	Count  int    `json:"count"`
	Source string `json:"source"`
}

type SessionRequest struct {
	Token string `json:"token" binding:"required"`
}

type SessionResponse struct {
	Role        string `json:"role"`
	MergedItems int    `json:"mergedItems"`
	Warning     string `json:"warning,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
