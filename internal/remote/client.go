// Package remote talks to the authoritative remote store. Nothing leaves this
// package as a transport error: pushes return an Ack and pulls fail closed.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"fieldsync-backend/config"
	"fieldsync-backend/internal/metrics"
	"fieldsync-backend/internal/model"
	"fieldsync-backend/internal/parse"
)

const maxBodyBytes = 8 << 20

// Ack is the outcome of a push or ping. Success on a push means the payload
// was handed to the remote without a transport error.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client is the Remote Sync Client.
type Client struct {
	endpoint string
	headers  map[string]string
	loc      *time.Location
	client   *http.Client
	now      func() time.Time
}

// NewClient creates a client for the configured endpoint. An empty URL yields
// a client whose every operation reports "not configured".
func NewClient(cfg config.RemoteConfig) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Remote client will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	loc, err := parse.Location(cfg.Timezone)
	if err != nil {
		log.Printf("Warning: %v. Falling back to UTC.", err)
		loc = time.UTC
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		endpoint: strings.TrimSpace(cfg.URL),
		headers:  cfg.Headers,
		loc:      loc,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		now: time.Now,
	}
}

// Configured reports whether an endpoint is set.
func (c *Client) Configured() bool {
	return c.endpoint != ""
}

// Location is the timezone used for remote date fields.
func (c *Client) Location() *time.Location {
	return c.loc
}

// Push sends the given records. Nothing is retried here; on failure the
// records stay dirty and are sent again by a later refresh.
func (c *Client) Push(ctx context.Context, reports []model.Report, pending []model.PendingItem) Ack {
	if !c.Configured() {
		return Ack{Success: false, Message: "remote endpoint not configured"}
	}

	payload := BuildPayload(reports, pending, c.loc, c.now())
	body, err := json.Marshal(payload)
	if err != nil {
		metrics.PushTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		log.WithError(err).Error("failed to marshal push payload")
		return Ack{Success: false, Message: "failed to encode payload"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		metrics.PushTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		log.WithError(err).Error("failed to create push request")
		return Ack{Success: false, Message: "invalid remote endpoint"}
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.PushTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		log.WithError(err).Warn("push failed: network error")
		return Ack{Success: false, Message: "network error"}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	fields := log.Fields{
		"reports": len(reports),
		"pending": len(pending),
		"status":  resp.StatusCode,
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.WithFields(fields).Warn("push dispatched but remote answered with a non-2xx status")
	} else {
		log.WithFields(fields).Info("push dispatched")
	}
	metrics.PushTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return Ack{Success: true, Message: "synced " + ProtocolVersion}
}

// PullItems fetches the remote PendingItem collection. ok is false on any
// failure; callers must then treat the remote as unavailable, never as empty.
func (c *Client) PullItems(ctx context.Context) ([]model.PendingItem, bool) {
	if !c.Configured() {
		return nil, false
	}

	body, err := c.get(ctx, "listPending")
	if err != nil {
		metrics.PullTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		log.WithError(err).Warn("pull of pending items failed")
		return nil, false
	}

	// A JSON null leaves the pointer nil; only an actual array counts as data.
	var records *[]PendingRecord
	if err := json.Unmarshal(body, &records); err != nil || records == nil {
		metrics.PullTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		log.WithError(err).Warn("pull of pending items returned a body that is not a JSON array")
		return nil, false
	}

	items := make([]model.PendingItem, 0, len(*records))
	dropped := 0
	for _, rec := range *records {
		item, ok := FromRemote(rec, c.loc)
		if !ok {
			dropped++
			continue
		}
		items = append(items, item)
	}
	if dropped > 0 {
		log.WithField("dropped", dropped).Warn("ignored remote pending items without a tag")
	}
	metrics.PullTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return items, true
}

// PullStats fetches the remote aggregate counts, nil on any failure.
func (c *Client) PullStats(ctx context.Context) *model.Stats {
	if !c.Configured() {
		return nil
	}
	body, err := c.get(ctx, "stats")
	if err != nil {
		log.WithError(err).Warn("pull of stats failed")
		return nil
	}
	var stats model.Stats
	if err := json.Unmarshal(body, &stats); err != nil {
		log.WithError(err).Warn("pull of stats returned an unreadable body")
		return nil
	}
	return &stats
}

// Ping checks that the endpoint is reachable and speaks a compatible
// protocol version.
func (c *Client) Ping(ctx context.Context) Ack {
	if !c.Configured() {
		return Ack{Success: false, Message: "remote endpoint not configured"}
	}
	u, err := url.Parse(c.endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Ack{Success: false, Message: "invalid remote URL"}
	}

	body, err := c.get(ctx, "test")
	if err != nil {
		log.WithError(err).Warn("ping failed")
		return Ack{Success: false, Message: "communication failure"}
	}
	text := string(body)
	if strings.Contains(text, "SUCCESS") || strings.Contains(text, "_stable") {
		return Ack{Success: true, Message: "connection established"}
	}
	return Ack{Success: false, Message: "incompatible remote; expected protocol " + ProtocolVersion}
}

// get performs GET <endpoint>?action=<action>&t=<ms> and returns the body of a
// 200 response.
func (c *Client) get(ctx context.Context, action string) ([]byte, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid remote URL: %w", err)
	}
	q := u.Query()
	q.Set("action", action)
	q.Set("t", strconv.FormatInt(c.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
}
