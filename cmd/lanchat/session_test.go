package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/daviddao/lanchat/internal/config"
	"github.com/daviddao/lanchat/internal/feed"
	"github.com/daviddao/lanchat/internal/lan"
)

type runResult struct {
	m   chatModel
	err error
}

// startRun drives a headless session over one end of a pipe.
func startRun(t *testing.T, conn net.Conn, opts ...tea.ProgramOption) <-chan runResult {
	t.Helper()
	s := &session{cfg: config.Default(), log: slog.New(slog.DiscardHandler)}
	c := &lan.Conn{Conn: conn, Reader: bufio.NewReader(conn), PeerName: "bob"}
	opts = append(opts, tea.WithOutput(io.Discard), tea.WithoutRenderer(), tea.WithoutSignalHandler())

	done := make(chan runResult, 1)
	go func() {
		m, err := s.run(context.Background(), c, opts...)
		done <- runResult{m, err}
	}()
	return done
}

func waitResult(t *testing.T, done <-chan runResult) runResult {
	t.Helper()
	select {
	case res := <-done:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end")
		return runResult{}
	}
}

func TestRunRendersPeerLinesUntilPeerCloses(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	done := startRun(t, local, tea.WithInput(nil))

	if _, err := io.WriteString(remote, "hello\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	remote.Close()

	res := waitResult(t, done)
	if res.err != nil {
		t.Fatalf("run: %v", res.err)
	}
	if got := res.m.region.Row(1); got != "bob: hello" {
		t.Errorf("row 1 = %q, want %q", got, "bob: hello")
	}
	if got := res.m.region.Cursor(); got != 2 {
		t.Errorf("cursor = %d, want 2", got)
	}
	if res.m.received != 1 {
		t.Errorf("received = %d, want 1", res.m.received)
	}
	if !errors.Is(res.m.endErr, feed.ErrPeerClosed) {
		t.Errorf("endErr = %v, want ErrPeerClosed", res.m.endErr)
	}
}

func TestRunEscEndsSessionAndStopsFeed(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	keysIn, keysOut := io.Pipe()
	defer keysOut.Close()
	done := startRun(t, local, tea.WithInput(keysIn))

	go func() { _, _ = io.WriteString(keysOut, "\x1b") }()

	res := waitResult(t, done)
	if res.err != nil {
		t.Fatalf("run: %v", res.err)
	}
	if res.m.endErr != nil {
		t.Errorf("endErr = %v, want nil after esc", res.m.endErr)
	}
	if got := exitMessage(res.m.endErr); got != "Connection ended." {
		t.Errorf("exit message = %q", got)
	}

	// The feed closes its end of the connection when it stops.
	_ = remote.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := remote.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
		t.Errorf("peer read after esc = %v, want EOF", err)
	}
}
