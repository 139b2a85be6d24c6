package workers

import (
	"chat-relay/errors"
	"chat-relay/mocks"
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// runSupervisor starts sup in the background and returns a channel closed when Run returns.
func runSupervisor(ctx context.Context, sup *Supervisor) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		sup.Run(ctx)
	}()
	return done
}

func requireClosed(req *require.Assertions, done <-chan struct{}, msg string) {
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail(msg)
	}
}

func TestSupervisor_Restarts_A_Panicking_Worker(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	worker := mocks.NewMockWorker(ctrl)

	var calls atomic.Int32
	worker.EXPECT().Run(gomock.Any()).
		DoAndReturn(func(context.Context) error {
			calls.Add(1)
			panic("fanout exploded")
		}).
		AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	done := runSupervisor(ctx, NewSupervisor(slog.Default(), 10*time.Millisecond).Add(worker).(*Supervisor))

	req.Eventually(func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	requireClosed(req, done, "Supervisor should return once its context is canceled")
}

func TestSupervisor_Restarts_A_Failing_Worker_Until_It_Succeeds(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	worker := mocks.NewMockWorker(ctrl)

	gomock.InOrder(
		worker.EXPECT().Run(gomock.Any()).Return(fmt.Errorf("badger busy")),
		worker.EXPECT().Run(gomock.Any()).Return(nil),
	)

	sup := NewSupervisor(slog.Default(), 10*time.Millisecond)
	done := runSupervisor(context.Background(), sup.Add(worker).(*Supervisor))
	requireClosed(req, done, "Supervisor should return after the restarted worker succeeded")
}

func TestSupervisor_Does_Not_Restart_A_Finished_Worker(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	worker := mocks.NewMockWorker(ctrl)
	worker.EXPECT().Run(gomock.Any()).Return(nil).Times(1)

	done := runSupervisor(context.Background(), NewSupervisor(slog.Default(), 0).Add(worker).(*Supervisor))
	requireClosed(req, done, "Supervisor should stop after worker success")
}

func TestSupervisor_Stop_Cancels_Every_Worker(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	started := make(chan struct{}, 2)
	blocking := func(ctx context.Context) error {
		started <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	}
	w1 := mocks.NewMockWorker(ctrl)
	w2 := mocks.NewMockWorker(ctrl)
	w1.EXPECT().Run(gomock.Any()).DoAndReturn(blocking).Times(1)
	w2.EXPECT().Run(gomock.Any()).DoAndReturn(blocking).Times(1)

	sup := NewSupervisor(slog.Default(), 0)
	done := runSupervisor(context.Background(), sup.Add(w1, w2).(*Supervisor))
	<-started
	<-started

	sup.Stop()
	requireClosed(req, done, "Supervisor should return after Stop")
}

func TestRunOnce_Recovers_Panic(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	worker := mocks.NewMockWorker(ctrl)
	worker.EXPECT().Run(gomock.Any()).DoAndReturn(func(context.Context) error { panic("boom") })

	err := runOnce(context.Background(), worker)
	req.ErrorIs(err, errors.ErrWorkerPanic)
	req.Contains(err.Error(), "boom")
}
