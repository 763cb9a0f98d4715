package lan

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchange(t *testing.T) {
	var sent bytes.Buffer
	r := bufio.NewReader(strings.NewReader("bob\x00\x00\nhello\n"))

	peer, err := Exchange(&sent, r, "  alice ")
	require.NoError(t, err)
	assert.Equal(t, "bob", peer)
	assert.Equal(t, "alice\n", sent.String())

	// Chat bytes that followed the name stay buffered.
	rest, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "hello\n", rest)
}

func TestExchangeEmptyPeerName(t *testing.T) {
	peer, err := Exchange(io.Discard, bufio.NewReader(strings.NewReader("\x00 \n")), "alice")
	require.NoError(t, err)
	assert.Equal(t, FallbackName, peer)
}

func TestExchangeErrors(t *testing.T) {
	_, err := Exchange(io.Discard, bufio.NewReader(strings.NewReader("no newline")), "alice")
	assert.ErrorIs(t, err, ErrHandshake)

	long := strings.Repeat("x", MaxNameLen+1) + "\n"
	_, err = Exchange(io.Discard, bufio.NewReader(strings.NewReader(long)), "alice")
	assert.ErrorIs(t, err, ErrHandshake)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "bob", SanitizeName("\x00bob\x00\r\n"))
	assert.Equal(t, "a b", SanitizeName(" a b "))
	assert.Len(t, SanitizeName(strings.Repeat("é", 100)), MaxNameLen)
}

func TestAcceptAndDial(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		c   *Conn
		err error
	}
	server := make(chan result, 1)
	go func() {
		c, err := Accept(ctx, ln, "server-side")
		server <- result{c, err}
	}()

	client, err := Dial(ctx, ln.Addr().String(), "client-side")
	require.NoError(t, err)
	defer client.Close()

	s := <-server
	require.NoError(t, s.err)
	defer s.c.Close()

	assert.Equal(t, "server-side", client.PeerName)
	assert.Equal(t, "client-side", s.c.PeerName)

	_, err = io.WriteString(client, "ping\n")
	require.NoError(t, err)
	line, err := s.c.Reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "ping\n", line)
}

func TestAcceptCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Accept(ctx, ln, "nobody")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParsePort(t *testing.T) {
	assert.Equal(t, 9000, ParsePort("9000"))
	assert.Equal(t, DefaultPort, ParsePort("server"))
	assert.Equal(t, DefaultPort, ParsePort("70000"))
}

func TestServerAddr(t *testing.T) {
	assert.Equal(t, "10.0.0.5:8888", ServerAddr("10.0.0.5", 8888))
	host, port, err := net.SplitHostPort(ServerAddr("", 9001))
	require.NoError(t, err)
	assert.Equal(t, "9001", port)
	assert.NotNil(t, net.ParseIP(host))
}
