// Package lan establishes the chat connection: it listens or dials, swaps
// display names with the peer and discovers the local address to bind.
package lan

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	DefaultPort = 8888
	// MaxNameLen bounds the name line read during the handshake.
	MaxNameLen = 128
	// FallbackName is used when the peer sends an empty name.
	FallbackName = "peer"
)

// ErrHandshake is returned when the name exchange fails.
var ErrHandshake = errors.New("lan: handshake failed")

// Conn is an established chat connection. Reader holds any bytes that were
// buffered past the handshake and must be used for further reads.
type Conn struct {
	net.Conn
	Reader   *bufio.Reader
	PeerName string
}

// Listen waits for a single peer on addr and performs the handshake.
func Listen(ctx context.Context, addr, name string) (*Conn, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	defer ln.Close()
	return Accept(ctx, ln, name)
}

// Accept takes one connection from ln and performs the handshake. ln is
// closed only if ctx ends before a peer arrives.
func Accept(ctx context.Context, ln net.Listener, name string) (*Conn, error) {
	type result struct {
		c   net.Conn
		err error
	}
	accepted := make(chan result, 1)
	go func() {
		c, err := ln.Accept()
		accepted <- result{c, err}
	}()

	select {
	case <-ctx.Done():
		ln.Close()
		return nil, ctx.Err()
	case r := <-accepted:
		if r.err != nil {
			return nil, fmt.Errorf("accept on %s: %w", ln.Addr(), r.err)
		}
		return handshake(ctx, r.c, name)
	}
}

// Dial connects to a listening peer and performs the handshake.
func Dial(ctx context.Context, addr, name string) (*Conn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return handshake(ctx, c, name)
}

func handshake(ctx context.Context, c net.Conn, name string) (*Conn, error) {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	r := bufio.NewReaderSize(c, 4096)
	peer, err := Exchange(c, r, name)
	if err != nil {
		c.Close()
		return nil, err
	}
	return &Conn{Conn: c, Reader: r, PeerName: peer}, nil
}

// Exchange writes name as one line and reads the peer's name line from r.
func Exchange(w io.Writer, r *bufio.Reader, name string) (string, error) {
	name = SanitizeName(name)
	if _, err := io.WriteString(w, name+"\n"); err != nil {
		return "", fmt.Errorf("%w: send name: %v", ErrHandshake, err)
	}

	var sb strings.Builder
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", fmt.Errorf("%w: read name: %v", ErrHandshake, err)
		}
		if b == '\n' {
			break
		}
		if sb.Len() >= MaxNameLen {
			return "", fmt.Errorf("%w: name longer than %d bytes", ErrHandshake, MaxNameLen)
		}
		sb.WriteByte(b)
	}

	peer := SanitizeName(sb.String())
	if peer == "" {
		peer = FallbackName
	}
	return peer, nil
}

// SanitizeName trims NULs, spaces and control characters and caps the
// length at MaxNameLen bytes without splitting a rune.
func SanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	for len(name) > MaxNameLen {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}

// LocalIP returns the first non-loopback IPv4 address of an interface that
// is up, or 127.0.0.1.
func LocalIP() net.IP {
	ifaces, err := net.Interfaces()
	if err == nil {
		for _, ifc := range ifaces {
			if ifc.Flags&net.FlagUp == 0 || ifc.Flags&net.FlagLoopback != 0 {
				continue
			}
			addrs, err := ifc.Addrs()
			if err != nil {
				continue
			}
			for _, a := range addrs {
				ipn, ok := a.(*net.IPNet)
				if !ok {
					continue
				}
				if ip4 := ipn.IP.To4(); ip4 != nil && !ip4.IsLoopback() && !ip4.IsLinkLocalUnicast() {
					return ip4
				}
			}
		}
	}
	return net.IPv4(127, 0, 0, 1)
}

// ServerAddr builds the listen address. An empty host means the local IP.
func ServerAddr(host string, port int) string {
	if host == "" {
		host = LocalIP().String()
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// ParsePort parses a port argument, falling back to DefaultPort.
func ParsePort(s string) int {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || p <= 0 || p > 65535 {
		return DefaultPort
	}
	return p
}
