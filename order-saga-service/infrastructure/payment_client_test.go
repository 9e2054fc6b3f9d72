package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentClient_ProcessPayment(t *testing.T) {
	request := domain.PaymentRequest{
		OrderID:       "550e8400-e29b-41d4-a716-446655440020",
		Amount:        models.NewMoney(10000, "USD"),
		PaymentMethod: "credit_card",
	}

	tests := []struct {
		name              string
		status            int
		body              string
		expectedResponse  *domain.PaymentResponse
		expectedRetryable bool
	}{
		{
			name:   "charged",
			status: http.StatusCreated,
			body:   `{"payment_id":"pay-1","transaction_id":"tx-1","status":"SUCCEEDED"}`,
			expectedResponse: &domain.PaymentResponse{
				PaymentID:     "pay-1",
				TransactionID: "tx-1",
				Status:        domain.PaymentStatusSucceeded,
			},
		},
		{
			name:   "declined",
			status: http.StatusOK,
			body:   `{"payment_id":"pay-2","status":"FAILED","failure_reason":"card declined"}`,
			expectedResponse: &domain.PaymentResponse{
				PaymentID:     "pay-2",
				Status:        domain.PaymentStatusFailed,
				FailureReason: "card declined",
			},
		},
		{
			name:              "gateway timeout",
			status:            http.StatusGatewayTimeout,
			body:              `{"error":"upstream timeout"}`,
			expectedRetryable: true,
		},
		{
			name:   "rejected request",
			status: http.StatusUnprocessableEntity,
			body:   `{"code":"INVALID_AMOUNT","message":"amount must be positive"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/payments", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var got domain.PaymentRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				assert.Equal(t, request, got)

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			response, err := NewPaymentClient(server.URL, time.Second).ProcessPayment(context.Background(), request)

			if tt.expectedResponse != nil {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedResponse, response)
				return
			}

			var serviceErr *domain.ServiceError
			require.True(t, errors.As(err, &serviceErr))
			assert.Equal(t, "payment", serviceErr.Service)
			assert.Equal(t, tt.expectedRetryable, serviceErr.Retryable)
			assert.Nil(t, response)
		})
	}
}

func TestPaymentClient_RefundPayment(t *testing.T) {
	var got refundBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments/pay-1/refunds", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	err := NewPaymentClient(server.URL, time.Second).
		RefundPayment(context.Background(), "pay-1", models.NewMoney(10000, "USD"), "order cancelled")

	require.NoError(t, err)
	assert.Equal(t, refundBody{Amount: 10000, Currency: "USD", Reason: "order cancelled"}, got)
}
