package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/charmbracelet/log"
)

// Client forwards input lines to a server and copies everything the server sends to an
// output writer.
type Client struct {
	conn   net.Conn
	logger *log.Logger
}

// Dial connects to addr. A zero timeout waits for the OS default.
func Dial(ctx context.Context, addr string, timeout time.Duration, logger *log.Logger) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	logger.Debug("Connected", "addr", conn.RemoteAddr().String())
	return &Client{conn: conn, logger: logger}, nil
}

// Run sends each line of in to the server and writes the responses to out. When in is
// exhausted the write side is closed and Run waits for the server to finish answering.
// It returns when the server closes the connection or ctx is done.
func (c *Client) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	recv := make(chan error, 1)
	go func() {
		_, err := io.Copy(out, c.conn)
		recv <- err
	}()

	send := make(chan error, 1)
	go func() {
		send <- c.send(in)
	}()

	for {
		select {
		case <-ctx.Done():
			c.conn.Close()
			<-recv
			return ctx.Err()
		case err := <-recv:
			if err != nil && !errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("read from server: %w", err)
			}
			c.logger.Debug("Server closed the connection")
			return nil
		case err := <-send:
			send = nil
			if err != nil {
				c.conn.Close()
				<-recv
				return err
			}
			c.closeWrite()
		}
	}
}

func (c *Client) send(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	sent := 0
	for scanner.Scan() {
		if _, err := io.WriteString(c.conn, scanner.Text()+"\n"); err != nil {
			return fmt.Errorf("write to server: %w", err)
		}
		sent++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	c.logger.Debug("Input exhausted", "lines", sent)
	return nil
}

func (c *Client) closeWrite() {
	if cw, ok := c.conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			c.logger.Debug("Half close failed", "err", err)
		}
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}
