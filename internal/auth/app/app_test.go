package app

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/paddockhq/paddock/internal/auth/service"
	"github.com/paddockhq/paddock/internal/auth/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func TestShutdownHonorsGracePeriod(t *testing.T) {
	db, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hk := service.NewHousekeepingService(db, logger, time.Hour)
	hk.Start()

	app := &Application{
		cfg:                 Config{ShutdownGracePeriod: time.Second},
		logger:              logger,
		db:                  db,
		HousekeepingService: hk,
	}

	done := make(chan error, 1)
	go func() { done <- app.Shutdown() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not finish")
	}
}
