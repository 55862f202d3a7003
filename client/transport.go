package client

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// gzipThreshold is the batch size at which compression is applied;
// matches the original's len(batch) >= 100 check.
const gzipThreshold = 100

// sender POSTs batches to the collector, retrying with exponential
// backoff and never propagating a failure back to the caller — a log
// batch that cannot be delivered is dropped, not raised.
type sender struct {
	httpClient *http.Client
	url        string
	compress   bool
	maxRetries int
}

func newSender(opts Options) *sender {
	return &sender{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		url:        opts.ServerURL + "/logs",
		compress:   opts.EnableCompression != nil && *opts.EnableCompression,
		maxRetries: opts.MaxRetries,
	}
}

type wireBatch struct {
	Logs []map[string]any `json:"logs"`
}

func (s *sender) send(batch []entry) {
	logs := make([]map[string]any, len(batch))
	for i, e := range batch {
		logs[i] = e.fields
	}

	payload, err := json.Marshal(wireBatch{Logs: logs})
	if err != nil {
		log.Printf("logtrail client: failed to marshal batch: %v", err)
		return
	}

	s.sendWithRetry(payload, len(logs), 0)
}

func (s *sender) sendWithRetry(payload []byte, count, retryCount int) {
	err := s.post(payload, count)
	if err == nil {
		return
	}
	if retryCount >= s.maxRetries {
		log.Printf("logtrail client: dropping batch of %d records after %d retries: %v", count, retryCount, err)
		return
	}

	backoff := time.Duration(1<<retryCount) * time.Second
	time.Sleep(backoff)
	s.sendWithRetry(payload, count, retryCount+1)
}

func (s *sender) post(payload []byte, count int) error {
	body := payload
	contentEncoding := ""

	if s.compress && count >= gzipThreshold {
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(payload); err != nil {
			return fmt.Errorf("gzip write: %w", err)
		}
		if err := gw.Close(); err != nil {
			return fmt.Errorf("gzip close: %w", err)
		}
		body = buf.Bytes()
		contentEncoding = "gzip"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if contentEncoding != "" {
		req.Header.Set("Content-Encoding", contentEncoding)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("collector returned status %d", resp.StatusCode)
	}
	return nil
}
