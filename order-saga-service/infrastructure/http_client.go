package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/pkg/errors"
)

const maxErrorBody = 4 << 10

// jsonClient talks JSON to one remote service and maps HTTP failures to domain.ServiceError
type jsonClient struct {
	service string
	baseURL string
	client  *http.Client
}

func newJSONClient(service, baseURL string, timeout time.Duration) *jsonClient {
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = timeout

	return &jsonClient{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *jsonClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.NewServiceError(c.service, "UNAVAILABLE", err.Error(), true)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return c.statusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode %s response", c.service)
	}
	return nil
}

// statusError keeps 5xx, 408 and 429 retryable; every other status is a business answer
func (c *jsonClient) statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	code := fmt.Sprintf("HTTP_%d", resp.StatusCode)
	message := strings.TrimSpace(string(raw))

	var body errorResponse
	if json.Unmarshal(raw, &body) == nil {
		if body.Code != "" {
			code = body.Code
		}
		switch {
		case body.Message != "":
			message = body.Message
		case body.Error != "":
			message = body.Error
		}
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	retryable := resp.StatusCode >= 500 ||
		resp.StatusCode == http.StatusRequestTimeout ||
		resp.StatusCode == http.StatusTooManyRequests

	return domain.NewServiceError(c.service, code, message, retryable)
}
