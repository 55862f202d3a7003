package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logtrail/logtrail/internal/config"
)

type stubClient struct {
	calls   int32
	timeout bool
	fail    bool
	reply   string
}

func (s *stubClient) Complete(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.timeout {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if s.fail {
		return "", errors.New("boom")
	}
	return s.reply, nil
}

func TestSupervisedCompleteSuccess(t *testing.T) {
	stub := &stubClient{reply: "ok"}
	sup := NewSupervised(stub, config.LLMConfig{Timeout: time.Second, MaxRetries: 1})

	text, err := sup.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.calls))
}

func TestSupervisedCompleteRetriesOnTimeout(t *testing.T) {
	stub := &stubClient{timeout: true}
	sup := NewSupervised(stub, config.LLMConfig{
		Timeout:      10 * time.Millisecond,
		MaxRetries:   2,
		RetryMinWait: time.Millisecond,
		RetryMaxWait: time.Millisecond,
	})

	_, err := sup.Complete(context.Background(), "hello")
	require.Error(t, err)
	var llmErr *Error
	require.ErrorAs(t, err, &llmErr)
	assert.True(t, llmErr.Timeout)
	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.calls))
}

func TestSupervisedCompleteNonRetryableFailsFast(t *testing.T) {
	stub := &stubClient{fail: true}
	sup := NewSupervised(stub, config.LLMConfig{
		Timeout:      time.Second,
		MaxRetries:   3,
		RetryMinWait: time.Millisecond,
		RetryMaxWait: time.Millisecond,
	})

	_, err := sup.Complete(context.Background(), "hello")
	require.Error(t, err)
	var llmErr *Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.calls))
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	_, err := New(config.LLMConfig{Provider: "vertex-ai", APIKey: "x"})
	assert.Error(t, err)
}

func TestFactoryRequiresAPIKey(t *testing.T) {
	_, err := New(config.LLMConfig{Provider: config.ProviderAnthropic})
	assert.Error(t, err)
}
