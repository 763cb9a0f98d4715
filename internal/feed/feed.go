// Package feed moves chat lines between the network connection and the
// session: complete newline-terminated lines read from the peer come out of
// Lines, and lines pushed onto the outbox are written to the peer in order.
package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/daviddao/lanchat/internal/outbox"
)

var (
	// ErrPeerClosed means the connection can no longer be read or written.
	ErrPeerClosed = errors.New("peer closed the connection")
	// ErrMalformed means the peer sent a line that is not valid UTF-8.
	ErrMalformed = errors.New("peer sent malformed text")
	// ErrLineTooLong means the peer sent MaxLineBytes without a newline.
	ErrLineTooLong = errors.New("peer line too long")
)

// MaxLineBytes bounds one incoming line, terminator included. A full input
// buffer of four-byte runes fits several times over.
const MaxLineBytes = 4096

// Feed owns both directions of one chat connection.
type Feed struct {
	conn  io.ReadWriteCloser
	r     *bufio.Reader
	out   *outbox.Queue
	lines chan string
	log   *slog.Logger
}

// Option configures a Feed.
type Option func(*Feed)

// WithLogger sets the logger used for connection events.
func WithLogger(l *slog.Logger) Option {
	return func(f *Feed) { f.log = l }
}

// New creates a feed. r must read from conn; pass nil to wrap conn directly.
// Reusing the reader from the handshake keeps bytes it already buffered.
func New(conn io.ReadWriteCloser, r *bufio.Reader, out *outbox.Queue, opts ...Option) *Feed {
	if r == nil {
		r = bufio.NewReader(conn)
	}
	f := &Feed{
		conn:  conn,
		r:     r,
		out:   out,
		lines: make(chan string),
		log:   slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Lines delivers cleaned peer lines. It is closed when Run returns.
func (f *Feed) Lines() <-chan string {
	return f.lines
}

// Run blocks until the context is cancelled or the connection fails. It
// returns nil on cancellation, ErrPeerClosed when the peer goes away and
// ErrMalformed or ErrLineTooLong on invalid input. The connection is closed on return.
func (f *Feed) Run(ctx context.Context) error {
	defer close(f.lines)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return f.readLoop(gctx) })
	g.Go(func() error { return f.writeLoop(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		f.conn.Close()
		return nil
	})

	err := g.Wait()
	if ctx.Err() != nil {
		// Cancelled by the session; the closed connection is expected.
		err = nil
	}
	if err != nil {
		f.log.Warn("feed stopped", "error", err)
	} else {
		f.log.Debug("feed stopped")
	}
	return err
}

func (f *Feed) readLoop(ctx context.Context) error {
	for {
		raw, err := f.readLine()
		if errors.Is(err, ErrLineTooLong) {
			return err
		}
		if err != nil {
			// A partial line without its terminator is never delivered.
			return fmt.Errorf("%w: read: %v", ErrPeerClosed, err)
		}
		if !utf8.ValidString(raw) {
			return ErrMalformed
		}
		line := Clean(raw)
		if line == "" {
			continue
		}
		f.log.Debug("line received", "bytes", len(raw))
		select {
		case f.lines <- line:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// readLine reads up to and including the next newline, refusing to buffer
// more than MaxLineBytes.
func (f *Feed) readLine() (string, error) {
	var buf []byte
	for {
		frag, err := f.r.ReadSlice('\n')
		if len(buf)+len(frag) > MaxLineBytes {
			return "", ErrLineTooLong
		}
		buf = append(buf, frag...)
		if !errors.Is(err, bufio.ErrBufferFull) {
			return string(buf), err
		}
	}
}

func (f *Feed) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-f.out.Out():
			if !ok {
				return nil
			}
			if _, err := io.WriteString(f.conn, line); err != nil {
				return fmt.Errorf("%w: write: %v", ErrPeerClosed, err)
			}
			f.log.Debug("line sent", "bytes", len(line))
		}
	}
}

// Clean trims trailing whitespace and control characters and drops any
// control characters left inside the line, so a peer cannot move the cursor.
func Clean(s string) string {
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
