package store

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRepositoryGetServices(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"name", "log_count"}).
		AddRow("payment-api", int64(42)).
		AddRow("order-api", int64(7))
	mock.ExpectQuery("SELECT service AS name").WillReturnRows(rows)

	repo := NewLogRepository(mock)
	services, err := repo.GetServices(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "payment-api", services[0].Name)
	assert.Equal(t, int64(42), services[0].LogCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogRepositoryGetStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM logs WHERE deleted = FALSE").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(100)))
	mock.ExpectQuery("SELECT level, COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"level", "count"}).AddRow("ERROR", int64(5)).AddRow("INFO", int64(95)))
	mock.ExpectQuery("SELECT service, COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"service", "count"}).AddRow("payment-api", int64(50)))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM logs\\s+WHERE level = 'ERROR'").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))

	repo := NewLogRepository(mock)
	stats, err := repo.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(100), stats.TotalCount)
	assert.Equal(t, int64(5), stats.LevelDistribution["ERROR"])
	assert.Equal(t, int64(50), stats.ServiceDistribution["payment-api"])
	assert.Equal(t, int64(2), stats.RecentErrors1h)
}
