package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bastiangx/autocomplete/internal/logger"
	"github.com/bastiangx/autocomplete/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func startServer(t *testing.T, cfg Config) (*Server, <-chan error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(scenarioEngine(), cfg, logger.Discard())
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(context.Background(), ln) }()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	require.Eventually(t, func() bool { return srv.Addr() != nil }, time.Second, 5*time.Millisecond)
	return srv, errc
}

func dial(t *testing.T, srv *Server) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	return &testClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

func (c *testClient) readLines(n int) []string {
	c.t.Helper()
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		line, err := c.reader.ReadString('\n')
		require.NoError(c.t, err)
		lines = append(lines, strings.TrimSuffix(line, "\n"))
	}
	return lines
}

func (c *testClient) readBanner() {
	c.t.Helper()
	assert.Equal(c.t, strings.Split(protocol.Banner, "\n"), c.readLines(3))
}

func (c *testClient) send(line string) {
	c.t.Helper()
	_, err := io.WriteString(c.conn, line+"\n")
	require.NoError(c.t, err)
}

func (c *testClient) expectClosed() {
	c.t.Helper()
	_, err := c.reader.ReadString('\n')
	assert.ErrorIs(c.t, err, io.EOF)
}

func TestServerScenario(t *testing.T) {
	srv, _ := startServer(t, Config{})
	c := dial(t, srv)
	c.readBanner()

	c.send("get app")
	assert.Equal(t, []string{"-> apply", "-> app", "-> apple"}, c.readLines(3))

	c.send("get ab12")
	assert.Equal(t, []string{protocol.ParseErrorMessage}, c.readLines(1))

	c.send("get zzz")
	assert.Equal(t, []string{protocol.NotFoundMessage}, c.readLines(1))

	c.send("get banan")
	assert.Equal(t, []string{"-> banana"}, c.readLines(1))
}

func TestServerUnterminatedLine(t *testing.T) {
	srv, _ := startServer(t, Config{})
	c := dial(t, srv)
	c.readBanner()

	_, err := io.WriteString(c.conn, "get apple")
	require.NoError(t, err)
	require.NoError(t, c.conn.(*net.TCPConn).CloseWrite())

	assert.Equal(t, []string{"-> apple"}, c.readLines(1))
	c.expectClosed()
}

func TestServerConcurrentClients(t *testing.T) {
	srv, _ := startServer(t, Config{})

	const clients = 8
	results := make([][]string, clients)
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		c := dial(t, srv)
		wg.Add(1)
		go func(i int, c *testClient) {
			defer wg.Done()
			c.readBanner()
			for j := 0; j < 20; j++ {
				c.send("get a")
				results[i] = c.readLines(3)
			}
		}(i, c)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, []string{"-> apply", "-> app", "-> apple"}, got)
	}
	assert.Equal(t, clients, srv.Stats()["accepted"])
	assert.Equal(t, clients*20, srv.Stats()["commands"])
}

func TestServerClientDisconnectDoesNotAffectOthers(t *testing.T) {
	srv, _ := startServer(t, Config{})
	a := dial(t, srv)
	b := dial(t, srv)
	a.readBanner()
	b.readBanner()

	a.send("get app")
	a.conn.Close()

	b.send("get banan")
	assert.Equal(t, []string{"-> banana"}, b.readLines(1))
	assert.Eventually(t, func() bool { return srv.Stats()["active"] == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestServerIdleTimeout(t *testing.T) {
	srv, _ := startServer(t, Config{IdleTimeout: 50 * time.Millisecond})
	c := dial(t, srv)
	c.readBanner()
	c.expectClosed()
}

func TestServerMaxConnections(t *testing.T) {
	srv, _ := startServer(t, Config{MaxConnections: 1})
	first := dial(t, srv)
	first.readBanner()

	second := dial(t, srv)
	assert.Equal(t, []string{protocol.BusyMessage}, second.readLines(1))
	second.expectClosed()
	assert.Equal(t, 1, srv.Stats()["rejected"])

	first.send("get apple")
	assert.Equal(t, []string{"-> apple"}, first.readLines(1))
}

func TestServerShutdown(t *testing.T) {
	srv, errc := startServer(t, Config{})
	c := dial(t, srv)
	c.readBanner()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrServerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
	c.expectClosed()
	assert.Equal(t, 0, srv.Stats()["active"])

	_, err := net.DialTimeout("tcp", srv.Addr().String(), 200*time.Millisecond)
	assert.Error(t, err)
}

func TestServerContextCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := New(scenarioEngine(), Config{}, logger.Discard())
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool { return srv.Addr() != nil }, time.Second, 5*time.Millisecond)
	c := dial(t, srv)
	c.readBanner()

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	c.expectClosed()
}

func TestServeAfterShutdown(t *testing.T) {
	srv := New(scenarioEngine(), Config{}, logger.Discard())
	require.NoError(t, srv.Shutdown(context.Background()))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	assert.ErrorIs(t, srv.Serve(context.Background(), ln), ErrServerClosed)
}

func TestServerRejectsWithoutBlockingAccept(t *testing.T) {
	srv, _ := startServer(t, Config{MaxConnections: 1})
	first := dial(t, srv)
	first.readBanner()

	// rejected peers that never read their busy message
	const idle = 8
	for i := 0; i < idle; i++ {
		dial(t, srv)
	}
	assert.Eventually(t, func() bool { return srv.Stats()["rejected"] == idle },
		500*time.Millisecond, 5*time.Millisecond)

	first.send("get banan")
	assert.Equal(t, []string{"-> banana"}, first.readLines(1))
}
