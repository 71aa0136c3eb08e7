package quic

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStreamRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tr := New()
	ln, err := tr.Listen(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept(ctx)
		if err != nil {
			got <- "accept: " + err.Error()
			return
		}
		defer conn.Close()
		buf := make([]byte, 5)
		if _, err := io.ReadFull(conn, buf); err != nil {
			got <- "read: " + err.Error()
			return
		}
		_, _ = conn.Write([]byte("pong"))
		got <- string(buf)
	}()

	conn, err := tr.Dial(ctx, ln.Addr().String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("hello"))
	require.NoError(t, err)

	resp := make([]byte, 4)
	_, err = io.ReadFull(conn, resp)
	require.NoError(t, err)
	require.Equal(t, "pong", string(resp))
	require.Equal(t, "hello", <-got)
	require.NotNil(t, conn.RemoteAddr())
	require.NoError(t, conn.Close())
}

func TestAcceptCancel(t *testing.T) {
	tr := New()
	ln, err := tr.Listen(context.Background(), "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = ln.Accept(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
