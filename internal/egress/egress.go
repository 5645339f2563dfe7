// Package egress forwards inbound SMS (mobile-originated messages and
// delivery receipts) to the downstream HTTP SMSC, with the bounded retry
// spec.md §4.7 requires.
package egress

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/smppgw/bridge/internal/bridgeerr"
)

// Message is one inbound SMS to forward to the SMSC.
type Message struct {
	From       string
	To         string
	Text       string // raw short_message octets, interpretation depends on DataCoding
	DataCoding int
	EsmClass   int
	IsReceipt  bool
	// ReceiptID and ReceiptStatus are populated when IsReceipt is true and
	// short_message parses as a spec 3.4 delivery receipt body
	// ("id:... stat:..."); left empty otherwise or on a parse failure.
	ReceiptID     string
	ReceiptStatus string
}

// Client posts a Message to the downstream SMSC.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPClient posts a GET request built from Message fields to a fixed URL,
// per spec.md §4.7: 5s per-attempt timeout, 3 attempts, 1s fixed delay.
type HTTPClient struct {
	URL            string
	HTTP           *http.Client
	Attempts       int
	AttemptTimeout time.Duration
	Delay          time.Duration
	Logger         *zap.Logger
}

// NewHTTPClient builds a client with spec.md §4.7's default retry policy.
func NewHTTPClient(kamailioURL string, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		URL:            kamailioURL,
		HTTP:           &http.Client{},
		Attempts:       3,
		AttemptTimeout: 5 * time.Second,
		Delay:          1 * time.Second,
		Logger:         logger,
	}
}

// Send implements Client. It retries on any transport error or non-2xx
// response, and wraps bridgeerr.ErrEgressFailed once attempts are exhausted.
func (c *HTTPClient) Send(ctx context.Context, msg Message) error {
	reqURL, err := c.buildURL(msg)
	if err != nil {
		return fmt.Errorf("%w: building request url: %v", bridgeerr.ErrEgressFailed, err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.Attempts; attempt++ {
		lastErr = c.attempt(ctx, reqURL)
		if lastErr == nil {
			return nil
		}
		c.Logger.Warn("egress attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.Attempts),
			zap.String("to", msg.To),
			zap.Error(lastErr))
		if attempt == c.Attempts {
			break
		}
		select {
		case <-time.After(c.Delay):
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", bridgeerr.ErrEgressFailed, ctx.Err())
		}
	}
	return fmt.Errorf("%w: %v", bridgeerr.ErrEgressFailed, lastErr)
}

func (c *HTTPClient) attempt(ctx context.Context, reqURL string) error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("smsc returned status %d", resp.StatusCode)
	}
	return nil
}

// buildURL encodes msg into the kamailio_url query string. Per spec.md §9's
// resolved open questions: esm_class and dcs always travel with the
// request; short_message is percent-encoded UTF-8 in "text" when
// data_coding is 0 (SMSC default alphabet), otherwise the raw octets go
// hex-encoded in "text_hex" so downstream can decode per dcs; receipts are
// flagged explicitly instead of making the SMSC re-derive esm_class bit 2.
func (c *HTTPClient) buildURL(msg Message) (string, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("from", msg.From)
	q.Set("to", msg.To)
	q.Set("dcs", fmt.Sprintf("%d", msg.DataCoding))
	q.Set("esm_class", fmt.Sprintf("%d", msg.EsmClass))
	if msg.DataCoding == 0 {
		q.Set("text", msg.Text)
	} else {
		q.Set("text_hex", hex.EncodeToString([]byte(msg.Text)))
	}
	if msg.IsReceipt {
		q.Set("type", "receipt")
		if msg.ReceiptID != "" {
			q.Set("receipt_id", msg.ReceiptID)
			q.Set("receipt_status", msg.ReceiptStatus)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
