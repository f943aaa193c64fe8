package logs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"soundcheck/internal/api"
)

// ErrAPIUnavailable signals that the daemon's HTTP log endpoint could not be
// reached, letting callers fall back to tailing the log file directly.
var ErrAPIUnavailable = errors.New("log API unavailable")

// StreamClient reads structured log events from the daemon's /api/logs
// endpoint.
type StreamClient struct {
	base *url.URL
	http *http.Client
}

// StreamQuery selects which events to fetch. Zero values mean "no filter".
type StreamQuery struct {
	Since         uint64
	Limit         int
	Follow        bool
	Tail          bool
	Component     string
	Lane          string
	CorrelationID string
	ItemID        int64
	Level         string
	Alert         string
	DecisionType  string
	Search        string
}

// NewStreamClient builds a client for the given bind address. An empty bind
// returns nil, which every method treats as "API disabled".
func NewStreamClient(bind string) (*StreamClient, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	// No client timeout. Follow mode holds the request open until the
	// daemon has events or the caller's context ends.
	return &StreamClient{base: base, http: &http.Client{}}, nil
}

// Fetch performs one log query against the daemon.
func (c *StreamClient) Fetch(ctx context.Context, q StreamQuery) (api.LogStreamResponse, error) {
	if c == nil {
		return api.LogStreamResponse{}, ErrAPIUnavailable
	}

	values := url.Values{}
	if q.Since > 0 {
		values.Set("since", strconv.FormatUint(q.Since, 10))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Follow {
		values.Set("follow", "1")
	}
	if q.Tail {
		values.Set("tail", "1")
	}
	if q.ItemID > 0 {
		values.Set("item", strconv.FormatInt(q.ItemID, 10))
	}
	setTrimmed(values, "component", q.Component)
	setTrimmed(values, "lane", q.Lane)
	setTrimmed(values, "correlation_id", q.CorrelationID)
	setTrimmed(values, "level", q.Level)
	setTrimmed(values, "alert", q.Alert)
	setTrimmed(values, "decision_type", q.DecisionType)
	setTrimmed(values, "search", q.Search)

	endpoint := c.base.ResolveReference(&url.URL{Path: "/api/logs", RawQuery: values.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return api.LogStreamResponse{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return api.LogStreamResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return api.LogStreamResponse{}, fmt.Errorf("api logs returned status %d", resp.StatusCode)
	}

	var payload api.LogStreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return api.LogStreamResponse{}, err
	}
	return payload, nil
}

func setTrimmed(values url.Values, key, raw string) {
	if strings.TrimSpace(raw) != "" {
		values.Set(key, raw)
	}
}

// IsAPIUnavailable reports whether err means the daemon is not serving the
// log API at all, as opposed to a query failing.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}
