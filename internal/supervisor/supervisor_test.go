package supervisor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

func TestSupervisor_StartRunsWorkersAndShutsDownOnCancel(t *testing.T) {
	root := t.TempDir()
	var ticks int64

	sup := New(Config{StateRoot: root, ShutdownTimeout: time.Second})
	sup.AddWorker(NewManagedWorker("test", 5*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt64(&ticks, 1)
		return nil
	}, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := sup.Start(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, atomic.LoadInt64(&ticks), int64(1))

	status, err := readRuntimeStatus(root)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, "stopped", status.State)
}

func TestSupervisor_Start_FailsWhenAlreadyRunning(t *testing.T) {
	root := t.TempDir()
	held, err := acquireLock(root)
	require.NoError(t, err)
	defer releaseLock(held)

	sup := New(Config{StateRoot: root})
	err = sup.Start(context.Background())
	require.Error(t, err)
	var already *direrrors.AlreadyRunningError
	assert.ErrorAs(t, err, &already)
}

func TestSupervisor_Shutdown_IdempotentWithoutStart(t *testing.T) {
	sup := New(Config{StateRoot: t.TempDir()})
	require.NoError(t, sup.Shutdown(context.Background()))
}

func TestStatus_ReportsStoppedWhenNoRuntimeFile(t *testing.T) {
	status, err := Status(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "stopped", status.State)
}

func TestSupervisor_ServesMetricsEndpointWhenConfigured(t *testing.T) {
	root := t.TempDir()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	sup := New(Config{
		StateRoot:       root,
		ShutdownTimeout: time.Second,
		MetricsAddr:     addr,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("direclaw_test 1\n"))
		}),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sup.Start(ctx) }()

	var resp *http.Response
	for i := 0; i < 20; i++ {
		resp, err = http.Get(fmt.Sprintf("http://%s/metrics", addr))
		if err == nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, <-done)
}
