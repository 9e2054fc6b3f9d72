package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/shared/models"
)

var _ domain.PaymentService = (*PaymentClient)(nil)

// PaymentClient implements PaymentService over the payments HTTP API
type PaymentClient struct {
	http *jsonClient
}

// NewPaymentClient creates a new PaymentClient
func NewPaymentClient(baseURL string, timeout time.Duration) *PaymentClient {
	return &PaymentClient{
		http: newJSONClient("payment", baseURL, timeout),
	}
}

type refundBody struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Reason   string `json:"reason"`
}

// ProcessPayment charges the order. A declined charge comes back as a
// response with status FAILED, not as an error.
func (c *PaymentClient) ProcessPayment(ctx context.Context, request domain.PaymentRequest) (*domain.PaymentResponse, error) {
	var response domain.PaymentResponse
	if err := c.http.do(ctx, http.MethodPost, "/payments", request, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// RefundPayment returns the given amount to the payer
func (c *PaymentClient) RefundPayment(ctx context.Context, paymentID string, amount models.Money, reason string) error {
	path := fmt.Sprintf("/payments/%s/refunds", url.PathEscape(paymentID))

	return c.http.do(ctx, http.MethodPost, path, refundBody{
		Amount:   amount.Amount,
		Currency: amount.Currency,
		Reason:   reason,
	}, nil)
}
