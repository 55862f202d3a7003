package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	m := New(true)
	assert.NotNil(t, m)
	assert.True(t, m.enabled)

	m2 := New(false)
	assert.NotNil(t, m2)
	assert.False(t, m2.enabled)
}

func TestRecordIngestBatchEnabled(t *testing.T) {
	IngestBatchesTotal.Reset()

	m := New(true)
	m.RecordIngestBatch("ok", 100, 50*time.Millisecond)

	count := testutil.CollectAndCount(IngestBatchesTotal)
	assert.Greater(t, count, 0)
}

func TestRecordIngestBatchDisabledIsNoop(t *testing.T) {
	IngestBatchesTotal.Reset()

	m := New(false)
	m.RecordIngestBatch("ok", 100, 50*time.Millisecond)

	count := testutil.CollectAndCount(IngestBatchesTotal)
	assert.Equal(t, 0, count)
}

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()

	m := New(true)
	m.RecordHTTPRequest("/query", 200, 10*time.Millisecond)

	count := testutil.CollectAndCount(HTTPRequestsTotal)
	assert.Greater(t, count, 0)
}

func TestCacheHitMissCounters(t *testing.T) {
	m := New(true)
	before := testutil.ToFloat64(CacheHitsTotal)
	m.RecordCacheHit()
	after := testutil.ToFloat64(CacheHitsTotal)
	assert.Equal(t, before+1, after)
}

func TestRecordAnomalyAlert(t *testing.T) {
	AnomalyAlertsTotal.Reset()

	m := New(true)
	m.RecordAnomalyAlert("error_rate_spike", "critical")

	count := testutil.CollectAndCount(AnomalyAlertsTotal)
	assert.Greater(t, count, 0)
}
