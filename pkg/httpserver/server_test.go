package httpserver_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/httpserver"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func waitForServer(t *testing.T, url string) *http.Response {
	t.Helper()
	var resp *http.Response
	require.Eventually(t, func() bool {
		var err error
		resp, err = http.Get(url)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	return resp
}

func TestServer_RunAndShutdown(t *testing.T) {
	t.Parallel()

	t.Run("serves until context cancel", func(t *testing.T) {
		t.Parallel()

		addr := freeAddr(t)
		srv := httpserver.New(httpserver.Config{Addr: addr, ShutdownTimeout: time.Second}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- srv.Run(ctx, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "ok")
			}))
		}()

		resp := waitForServer(t, "http://"+addr+"/")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, "ok", string(body))

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Fatal("server did not stop after context cancel")
		}
	})

	t.Run("start failure surfaces as ErrStart", func(t *testing.T) {
		t.Parallel()

		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer l.Close()

		srv := httpserver.New(httpserver.Config{Addr: l.Addr().String(), ShutdownTimeout: time.Second}, nil)
		err = srv.Run(context.Background(), nil)
		assert.ErrorIs(t, err, httpserver.ErrStart)
	})

	t.Run("shutdown is idempotent", func(t *testing.T) {
		t.Parallel()

		addr := freeAddr(t)
		srv := httpserver.New(httpserver.Config{Addr: addr, ShutdownTimeout: time.Second}, nil)

		done := make(chan error, 1)
		go func() { done <- srv.Run(context.Background(), nil) }()
		waitForServer(t, "http://"+addr+"/").Body.Close()

		require.NoError(t, srv.Shutdown(context.Background()))
		require.NoError(t, srv.Shutdown(context.Background()))

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Fatal("server did not stop after shutdown")
		}
	})
}
