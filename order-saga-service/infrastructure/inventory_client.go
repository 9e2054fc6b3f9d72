package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/draftea/order-fulfillment/order-saga-service/domain"
)

var _ domain.InventoryService = (*InventoryClient)(nil)

// InventoryClient implements InventoryService over the inventory HTTP API
type InventoryClient struct {
	http *jsonClient
}

// NewInventoryClient creates a new InventoryClient
func NewInventoryClient(baseURL string, timeout time.Duration) *InventoryClient {
	return &InventoryClient{
		http: newJSONClient("inventory", baseURL, timeout),
	}
}

type reserveStockBody struct {
	ReservationID string `json:"reservation_id"`
	ProductID     string `json:"product_id"`
	Quantity      int    `json:"quantity"`
	ReferenceID   string `json:"reference_id"`
	TTLSeconds    int64  `json:"ttl_seconds"`
}

type releaseReservationBody struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CheckAvailability asks how many units of a product can be sold
func (c *InventoryClient) CheckAvailability(ctx context.Context, productID string, quantity int) (*domain.StockAvailability, error) {
	path := fmt.Sprintf("/products/%s/availability?quantity=%d", url.PathEscape(productID), quantity)

	var availability domain.StockAvailability
	if err := c.http.do(ctx, http.MethodGet, path, nil, &availability); err != nil {
		return nil, err
	}
	if availability.ProductID == "" {
		availability.ProductID = productID
	}

	return &availability, nil
}

// ReserveStock holds stock under the request's reservation id
func (c *InventoryClient) ReserveStock(ctx context.Context, request domain.ReserveStockRequest) error {
	return c.http.do(ctx, http.MethodPost, "/reservations", reserveStockBody{
		ReservationID: request.ReservationID,
		ProductID:     request.ProductID,
		Quantity:      request.Quantity,
		ReferenceID:   request.ReferenceID,
		TTLSeconds:    int64(request.TTL / time.Second),
	}, nil)
}

// ReleaseReservation returns one product's reserved units to stock
func (c *InventoryClient) ReleaseReservation(ctx context.Context, reservationID, productID string, quantity int) error {
	path := fmt.Sprintf("/reservations/%s/release", url.PathEscape(reservationID))

	return c.http.do(ctx, http.MethodPost, path, releaseReservationBody{
		ProductID: productID,
		Quantity:  quantity,
	}, nil)
}
