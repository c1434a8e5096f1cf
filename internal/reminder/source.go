package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// UpstreamError reports a non-2xx HTTP status from the reminder API.
// It aborts the current dispatch cycle only.
type UpstreamError struct {
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("reminder api: http status %d", e.Status)
}

// ParseError reports a response body that is not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "reminder api: invalid json: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

type SourceConfig struct {
	Endpoint  string
	CronToken string
	Timeout   time.Duration
}

// Source fetches the categorized record set from the reminder API.
type Source struct {
	cfg  SourceConfig
	http *http.Client
}

func NewSource(cfg SourceConfig) *Source {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Source{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// Fetch performs one authenticated GET and returns the batch. Categories
// missing from the response come back as empty slices, not errors.
func (s *Source) Fetch(ctx context.Context) (Batch, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.Endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-CRON-TOKEN", s.cfg.CronToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reminder api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &UpstreamError{Status: resp.StatusCode}
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &ParseError{Err: err}
	}

	batch := make(Batch, len(DispatchOrder))
	for _, cat := range DispatchOrder {
		raw, ok := payload[cat.Key()]
		if !ok || string(raw) == "null" {
			batch[cat] = nil
			continue
		}
		var recs []Record
		if err := json.Unmarshal(raw, &recs); err != nil {
			return nil, &ParseError{Err: fmt.Errorf("key %q: %w", cat.Key(), err)}
		}
		batch[cat] = recs
	}
	return batch, nil
}
