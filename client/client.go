// Package client is logtrail's non-blocking ingestion client: application
// code calls Log (or a level convenience method) from any goroutine, the
// call never blocks, and a single background goroutine batches, compresses,
// and ships records to the collector.
package client

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"
)

const (
	defaultBatchSize     = 1000
	defaultFlushInterval = time.Second
	defaultMaxQueueSize  = 10000
	defaultMaxRetries    = 3
)

// Options configures a Client. Unset fields fall back to the matching
// environment variable, then to the documented default, mirroring the
// original async_client.py constructor's resolution order.
type Options struct {
	ServerURL         string
	Service           string
	Environment       string
	ServiceVersion    string
	LogType           string
	BatchSize         int
	FlushInterval     time.Duration
	MaxQueueSize      int
	EnableCompression *bool
	MaxRetries        int
}

func envOr(value, envVar, fallback string) string {
	if value != "" {
		return value
	}
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

func (o Options) resolved() Options {
	out := o
	out.ServerURL = trimTrailingSlash(envOr(out.ServerURL, "LOG_SERVER_URL", "http://localhost:8000"))
	out.Service = envOr(out.Service, "SERVICE_NAME", "")
	out.Environment = envOr(out.Environment, "ENVIRONMENT", "development")
	out.ServiceVersion = envOr(out.ServiceVersion, "SERVICE_VERSION", "v0.0.0-dev")
	out.LogType = envOr(out.LogType, "LOG_TYPE", "BACKEND")

	if out.BatchSize <= 0 {
		out.BatchSize = defaultBatchSize
	}
	if out.FlushInterval <= 0 {
		out.FlushInterval = defaultFlushInterval
	}
	if out.MaxQueueSize <= 0 {
		out.MaxQueueSize = defaultMaxQueueSize
	}
	if out.EnableCompression == nil {
		t := true
		out.EnableCompression = &t
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = defaultMaxRetries
	}
	return out
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// Client is a non-blocking ingestion client. Create with New, call Log
// (or a level method) from any goroutine, and Close before process exit
// to flush anything still queued.
type Client struct {
	opts      Options
	queue     chan entry
	sender    *sender
	done      chan struct{}
	closeOnce sync.Once
	onDrop    func()
}

// entry is one queued log call, already merged with its context scope.
type entry struct {
	fields map[string]any
}

// New constructs a Client and starts its background flush goroutine.
func New(opts Options) *Client {
	resolved := opts.resolved()
	c := &Client{
		opts:   resolved,
		queue:  make(chan entry, resolved.MaxQueueSize),
		sender: newSender(resolved),
		done:   make(chan struct{}),
	}
	go c.flushLoop()
	return c
}

// Log enqueues a structured log record. Explicit fields win over values
// carried in ctx's ContextScope, which in turn win over the client's
// configured defaults. The call is wait-free: if the queue is full, the
// record is dropped rather than blocking the caller.
func (c *Client) Log(ctx Context, level, message string, fields map[string]any) {
	merged := make(map[string]any, len(fields)+8)

	// Defaults first (lowest precedence).
	merged["service"] = c.opts.Service
	merged["environment"] = c.opts.Environment
	merged["service_version"] = c.opts.ServiceVersion
	merged["log_type"] = c.opts.LogType

	// Context scope next (overrides defaults).
	for k, v := range mergedContext(ctx) {
		merged[k] = v
	}

	// Explicit fields last (highest precedence).
	for k, v := range fields {
		merged[k] = v
	}

	merged["level"] = level
	merged["message"] = message
	merged["created_at"] = float64(time.Now().UnixNano()) / float64(time.Second)

	if fn, file, ok := callerInfo(3); ok {
		if _, exists := merged["function_name"]; !exists {
			merged["function_name"] = fn
		}
		if _, exists := merged["file_path"]; !exists {
			merged["file_path"] = file
		}
	}

	select {
	case c.queue <- entry{fields: merged}:
	default:
		if c.onDrop != nil {
			c.onDrop()
		}
	}
}

func callerInfo(skip int) (function, file string, ok bool) {
	pc, f, line, ok := runtime.Caller(skip)
	if !ok {
		return "", "", false
	}
	fn := runtime.FuncForPC(pc)
	name := ""
	if fn != nil {
		name = fn.Name()
	}
	return name, f + ":" + strconv.Itoa(line), true
}

func (c *Client) Trace(ctx Context, message string, fields map[string]any) { c.Log(ctx, "TRACE", message, fields) }
func (c *Client) Debug(ctx Context, message string, fields map[string]any) { c.Log(ctx, "DEBUG", message, fields) }
func (c *Client) Info(ctx Context, message string, fields map[string]any)  { c.Log(ctx, "INFO", message, fields) }
func (c *Client) Warn(ctx Context, message string, fields map[string]any)  { c.Log(ctx, "WARN", message, fields) }
func (c *Client) Error(ctx Context, message string, fields map[string]any) { c.Log(ctx, "ERROR", message, fields) }
func (c *Client) Fatal(ctx Context, message string, fields map[string]any) { c.Log(ctx, "FATAL", message, fields) }

// ErrorWithTrace logs err at ERROR level with its stack trace collapsed
// into the stack_trace field, matching the original's error_with_trace.
func (c *Client) ErrorWithTrace(ctx Context, err error, fields map[string]any) {
	merged := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged["stack_trace"] = fmt.Sprintf("%+v", err)
	merged["error_type"] = fmt.Sprintf("%T", err)
	c.Log(ctx, "ERROR", err.Error(), merged)
}

// StartTimer returns the current time; pass it to EndTimer to compute
// duration_ms for a manually-timed section.
func (c *Client) StartTimer() time.Time {
	return time.Now()
}

// EndTimer logs message at INFO with duration_ms measured since start.
func (c *Client) EndTimer(ctx Context, start time.Time, message string, fields map[string]any) {
	merged := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged["duration_ms"] = float64(time.Since(start).Microseconds()) / 1000.0
	c.Log(ctx, "INFO", message, merged)
}

// Timer returns a function that, when called, logs message at INFO with
// the elapsed duration_ms since Timer was invoked.
func (c *Client) Timer(ctx Context, message string) func(fields map[string]any) {
	start := time.Now()
	return func(fields map[string]any) {
		c.EndTimer(ctx, start, message, fields)
	}
}

// Measure wraps fn, logging its duration_ms on success and
// ErrorWithTrace-ing on failure before returning the error to the caller,
// matching the original's measure decorator / timer contextmanager.
func (c *Client) Measure(ctx Context, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsedMS := float64(time.Since(start).Microseconds()) / 1000.0

	if err != nil {
		c.ErrorWithTrace(ctx, err, map[string]any{
			"duration_ms":   elapsedMS,
			"function_name": name,
		})
		return err
	}
	c.Info(ctx, name+" completed", map[string]any{
		"duration_ms":   elapsedMS,
		"function_name": name,
	})
	return nil
}

// Flush synchronously drains and sends whatever is currently queued.
func (c *Client) Flush() {
	batch := c.drain(c.opts.BatchSize)
	for len(batch) > 0 {
		c.sender.send(batch)
		batch = c.drain(c.opts.BatchSize)
	}
}

// Close stops the background worker and flushes any remaining records.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.Flush()
	})
}

func (c *Client) drain(max int) []entry {
	var batch []entry
	for len(batch) < max {
		select {
		case e := <-c.queue:
			batch = append(batch, e)
		default:
			return batch
		}
	}
	return batch
}

// flushLoop mirrors the original's _flush_loop polling body: a full
// batch is sent immediately, a partial one is sent after flush_interval,
// and an empty queue is polled at a short fixed interval.
func (c *Client) flushLoop() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		switch {
		case len(c.queue) >= c.opts.BatchSize:
			if batch := c.drain(c.opts.BatchSize); len(batch) > 0 {
				c.sender.send(batch)
			}
		case len(c.queue) > 0:
			select {
			case <-c.done:
				return
			case <-time.After(c.opts.FlushInterval):
			}
			if batch := c.drain(c.opts.BatchSize); len(batch) > 0 {
				c.sender.send(batch)
			}
		default:
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
			}
		}
	}
}
