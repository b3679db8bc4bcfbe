package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/earlycare-ai/gateway/pkg/gateway/httpclient"
)

// ErrNotConfigured is returned when the client has no base URL.
var ErrNotConfigured = errors.New("narrative backend not configured")

// Client calls the diagnostic narrative backend. The backend's reply is
// treated as an opaque string; the gateway places it into the decision's
// explanation.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    httpclient.New(timeout),
	}
}

type generateRequest struct {
	PatientText string `json:"patient_text"`
}

type generateResponse struct {
	Narrative string `json:"narrative"`
}

// Generate posts the formatted patient text and returns the narrative. The
// call honors ctx cancellation and retries transient failures.
func (c *Client) Generate(ctx context.Context, patientText string) (string, error) {
	if c.baseURL == "" {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(generateRequest{PatientText: patientText})
	if err != nil {
		return "", fmt.Errorf("failed to marshal narrative request: %w", err)
	}

	var narrative string
	err = httpclient.Retry(ctx, 3, 200*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/api/v1/diagnose", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("narrative backend returned %d: %s", resp.StatusCode, body)
		}

		var out generateResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("failed to decode narrative response: %w", err)
		}
		narrative = out.Narrative
		return nil
	})
	if err != nil {
		return "", err
	}
	return narrative, nil
}
