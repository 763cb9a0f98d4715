package feed

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviddao/lanchat/internal/outbox"
)

type harness struct {
	feed   *Feed
	peer   net.Conn
	out    *outbox.Queue
	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T) *harness {
	t.Helper()
	local, peer := net.Pipe()
	out := outbox.New()
	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		feed:   New(local, nil, out),
		peer:   peer,
		out:    out,
		cancel: cancel,
		done:   make(chan error, 1),
	}
	go func() { h.done <- h.feed.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		out.Close()
		peer.Close()
	})
	return h
}

func (h *harness) send(t *testing.T, s string) {
	t.Helper()
	go func() { _, _ = io.WriteString(h.peer, s) }()
}

func nextLine(t *testing.T, f *Feed) string {
	t.Helper()
	select {
	case line, ok := <-f.Lines():
		require.True(t, ok, "Lines closed")
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a line")
		return ""
	}
}

func waitRun(t *testing.T, h *harness) error {
	t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestFeedDeliversCleanLines(t *testing.T) {
	h := start(t)
	h.send(t, "hello  \r\n")
	assert.Equal(t, "hello", nextLine(t, h.feed))

	h.send(t, "   \n\x1b[2Jsecond\n")
	assert.Equal(t, "[2Jsecond", nextLine(t, h.feed))
}

func TestFeedWaitsForCompleteLine(t *testing.T) {
	h := start(t)
	h.send(t, "hel")

	select {
	case line := <-h.feed.Lines():
		t.Fatalf("partial line delivered: %q", line)
	case <-time.After(100 * time.Millisecond):
	}

	h.send(t, "lo\n")
	assert.Equal(t, "hello", nextLine(t, h.feed))
}

func TestFeedWritesOutbox(t *testing.T) {
	h := start(t)
	require.NoError(t, h.out.Push("one\n"))
	require.NoError(t, h.out.Push("two\n"))

	r := bufio.NewReader(h.peer)
	for _, want := range []string{"one\n", "two\n"} {
		got, err := r.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestFeedPeerClose(t *testing.T) {
	h := start(t)
	h.peer.Close()

	err := waitRun(t, h)
	assert.ErrorIs(t, err, ErrPeerClosed)
	_, ok := <-h.feed.Lines()
	assert.False(t, ok)
}

func TestFeedCancelReturnsNil(t *testing.T) {
	h := start(t)
	h.cancel()
	assert.NoError(t, waitRun(t, h))
}

func TestFeedMalformedInput(t *testing.T) {
	h := start(t)
	h.send(t, "\xff\xfe\n")
	assert.ErrorIs(t, waitRun(t, h), ErrMalformed)
}

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello\n", "hello"},
		{"hello\r\n", "hello"},
		{"  padded  \t\n", "  padded"},
		{"bell\a inside\n", "bell inside"},
		{"\x00\x00", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clean(tt.in), "Clean(%q)", tt.in)
	}
}

func TestFeedLongLineWithinLimit(t *testing.T) {
	h := start(t)
	long := strings.Repeat("x", MaxLineBytes-1)
	h.send(t, long+"\n")
	assert.Equal(t, long, nextLine(t, h.feed))
}

func TestFeedRejectsUnterminatedFlood(t *testing.T) {
	h := start(t)
	h.send(t, strings.Repeat("x", MaxLineBytes+500))
	assert.ErrorIs(t, waitRun(t, h), ErrLineTooLong)
}
