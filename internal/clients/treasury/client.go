package treasury

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openraise/escrow-backend/internal/logger"
)

// Client is the HTTP adapter behind the ValueTransfer port: it asks an
// external treasury service to move currency and treats anything but a
// confirmed success as a failed transfer.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

func NewClient(baseURL, apiKey string, baseLog *logger.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("treasury base URL required")
	}
	clientLog := baseLog.With("client", "TreasuryClient")
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: clientLog,
	}, nil
}

type transferRequest struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

type transferResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (c *Client) Transfer(ctx context.Context, to string, amount int64) error {
	payload, err := json.Marshal(transferRequest{To: to, Amount: amount})
	if err != nil {
		return fmt.Errorf("marshal transfer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transfers", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post transfer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("treasury returned status %d", resp.StatusCode)
	}

	var result transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode transfer response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("treasury rejected transfer: %s", result.Error)
	}

	c.log.Debug("Transfer confirmed", "to", to, "amount", amount)
	return nil
}
