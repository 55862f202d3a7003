package anomaly

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logtrail/logtrail/internal/model"
	"github.com/logtrail/logtrail/internal/store"
	"github.com/logtrail/logtrail/internal/stream"
)

func newDetector(t *testing.T) (*Detector, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	repo := store.NewQueryRepository(mock)
	hub := stream.NewHub(nil)
	return New(repo, hub, Thresholds{}, 0), mock
}

func TestCheckErrorRateSpikeDetectsSpike(t *testing.T) {
	d, mock := newDetector(t)

	mock.ExpectQuery("error_count").
		WillReturnRows(pgxmock.NewRows([]string{"error_count"}).AddRow(int64(20)))
	mock.ExpectQuery("error_count").
		WillReturnRows(pgxmock.NewRows([]string{"error_count"}).AddRow(int64(10)))

	alert, err := d.checkErrorRateSpike(context.Background())
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, model.AlertErrorRateSpike, alert.Type)
	assert.Equal(t, model.SeverityCritical, alert.Severity)
}

func TestCheckErrorRateSpikeNoBaselineSkips(t *testing.T) {
	d, mock := newDetector(t)

	mock.ExpectQuery("error_count").
		WillReturnRows(pgxmock.NewRows([]string{"error_count"}).AddRow(int64(5)))
	mock.ExpectQuery("error_count").
		WillReturnRows(pgxmock.NewRows([]string{"error_count"}).AddRow(int64(0)))

	alert, err := d.checkErrorRateSpike(context.Background())
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestCheckSlowAPIsDetectsSlowPaths(t *testing.T) {
	d, mock := newDetector(t)

	mock.ExpectQuery("duration_ms").
		WillReturnRows(pgxmock.NewRows([]string{"path", "service", "avg_duration", "count"}).
			AddRow("/api/orders", "order-api", 3500.0, int64(5)))

	alert, err := d.checkSlowAPIs(context.Background())
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, model.AlertSlowAPI, alert.Type)
}

func TestCheckSlowAPIsNoneFound(t *testing.T) {
	d, mock := newDetector(t)
	mock.ExpectQuery("duration_ms").
		WillReturnRows(pgxmock.NewRows([]string{"path", "service", "avg_duration", "count"}))

	alert, err := d.checkSlowAPIs(context.Background())
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestCheckServiceDownParameterizesServiceName(t *testing.T) {
	d, mock := newDetector(t)

	mock.ExpectQuery("DISTINCT service").
		WillReturnRows(pgxmock.NewRows([]string{"service"}).AddRow("payment-api"))
	mock.ExpectQuery("WHERE service = \\$1").
		WithArgs("payment-api", float64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))

	alert, err := d.checkServiceDown(context.Background())
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, model.AlertServiceDown, alert.Type)
	assert.Equal(t, []string{"payment-api"}, alert.Data["services"])
}

func TestDetectorHistoryBoundedAt100(t *testing.T) {
	d := &Detector{thresholds: Thresholds{}, historyCap: defaultMaxAlertHistory}
	for i := 0; i < 150; i++ {
		d.record([]model.Alert{{Type: model.AlertSlowAPI, Timestamp: time.Now()}})
	}
	assert.Len(t, d.History(0), defaultMaxAlertHistory)
}

func TestDetectorHistoryRespectsLimit(t *testing.T) {
	d := &Detector{thresholds: Thresholds{}, historyCap: defaultMaxAlertHistory}
	d.record([]model.Alert{{Type: model.AlertSlowAPI}, {Type: model.AlertServiceDown}, {Type: model.AlertErrorRateSpike}})
	assert.Len(t, d.History(2), 2)
}
