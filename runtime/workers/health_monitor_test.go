package workers

import (
	"chat-relay/mocks"
	"chat-relay/observability"
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/shirou/gopsutil/process"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestHealthMonitor_Sample(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockRegistry.EXPECT().Count().Return(3)

	store := observability.NewHealthStore()
	monitor := NewHealthMonitor(slog.Default(), mockRegistry, store, time.Second)

	proc, err := process.NewProcess(int32(os.Getpid()))
	req.NoError(err)
	monitor.Sample(proc)

	stats := store.Latest()
	req.Equal(3, stats.Connections)
	req.NotZero(stats.RSSBytes)
	req.False(stats.SampledAt.IsZero())
}

func TestHealthMonitor_Run_Samples_Until_Canceled(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockRegistry.EXPECT().Count().Return(1).MinTimes(1)

	store := observability.NewHealthStore()
	monitor := NewHealthMonitor(slog.Default(), mockRegistry, store, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- monitor.Run(ctx) }()

	req.Eventually(func() bool { return store.Latest().Connections == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	req.NoError(<-done)
}

func TestValueLogGC_In_Memory_Stops(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	req.NoError(err)
	defer db.Close()

	gc := NewValueLogGC(slog.Default(), db, 10*time.Millisecond)
	req.True(gc.Collect())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req.NoError(gc.Run(ctx))
	req.NoError(ctx.Err(), "Run should return on its own for an in-memory database")
}

func TestValueLogGC_On_Disk_Keeps_Running(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLogger(nil))
	req.NoError(err)
	defer db.Close()

	gc := NewValueLogGC(slog.Default(), db, time.Hour)
	req.False(gc.Collect())
}
