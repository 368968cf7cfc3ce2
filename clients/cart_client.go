package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cart-gateway/models"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// CartClient talks to the remote cart backend. Mutations go straight
// through; FetchCart runs behind a circuit breaker because the count
// aggregator polls it and a dead backend should trip fast instead of
// stacking up timeouts.
type CartClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewCartClient(baseURL string) *CartClient {
	log := logrus.WithField("component", "cart-client")
	settings := gobreaker.Settings{
		Name:        "cart-fetch",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warnf("circuit breaker %s changed from %s to %s", name, from, to)
		},
	}

	return &CartClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// FetchCart retrieves the authenticated user's cart.
func (c *CartClient) FetchCart(ctx context.Context, token string) (models.RemoteCart, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var cart models.RemoteCart
		if err := c.do(ctx, token, http.MethodGet, "/cart", nil, &cart); err != nil {
			return nil, err
		}
		return cart, nil
	})
	if err != nil {
		return models.RemoteCart{}, errors.Wrap(err, "failed to fetch remote cart")
	}
	return result.(models.RemoteCart), nil
}

type addItemBody struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateItemBody struct {
	Quantity int `json:"quantity"`
}

// AddItem appends quantity of a product to the remote cart.
func (c *CartClient) AddItem(ctx context.Context, token, productID string, quantity int) (models.RemoteCart, error) {
	var cart models.RemoteCart
	body := addItemBody{ProductID: productID, Quantity: quantity}
	if err := c.do(ctx, token, http.MethodPost, "/cart/items", body, &cart); err != nil {
		return models.RemoteCart{}, errors.Wrapf(err, "failed to add product %s to remote cart", productID)
	}
	return cart, nil
}

// UpdateItem sets the quantity of a product in the remote cart.
func (c *CartClient) UpdateItem(ctx context.Context, token, productID string, quantity int) (models.RemoteCart, error) {
	var cart models.RemoteCart
	body := updateItemBody{Quantity: quantity}
	path := fmt.Sprintf("/cart/items/%s", productID)
	if err := c.do(ctx, token, http.MethodPut, path, body, &cart); err != nil {
		return models.RemoteCart{}, errors.Wrapf(err, "failed to update product %s in remote cart", productID)
	}
	return cart, nil
}

// RemoveItem drops a product from the remote cart.
func (c *CartClient) RemoveItem(ctx context.Context, token, productID string) (models.RemoteCart, error) {
	var cart models.RemoteCart
	path := fmt.Sprintf("/cart/items/%s", productID)
	if err := c.do(ctx, token, http.MethodDelete, path, nil, &cart); err != nil {
		return models.RemoteCart{}, errors.Wrapf(err, "failed to remove product %s from remote cart", productID)
	}
	return cart, nil
}

// ClearCart empties the remote cart.
func (c *CartClient) ClearCart(ctx context.Context, token string) error {
	if err := c.do(ctx, token, http.MethodDelete, "/cart", nil, nil); err != nil {
		return errors.Wrap(err, "failed to clear remote cart")
	}
	return nil
}

func (c *CartClient) do(ctx context.Context, token, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call cart backend: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("cart backend returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}
