package tesira

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"
)

// Transport carries protocol lines to and from a device. The session
// engine owns the framing above it: a transport only moves lines.
//
// ReadLine blocks until a full line is available and returns it
// without the terminator. Implementations need not be safe for
// concurrent readers; the session serializes access.
type Transport interface {
	ReadLine() (string, error)
	Write(p []byte) error
	Close() error
}

// netTransport frames lines over any net.Conn.
type netTransport struct {
	conn   net.Conn
	reader *bufio.Reader
}

// NewNetTransport wraps an established connection, typically a raw TCP
// connection to the device's Telnet-style port.
func NewNetTransport(conn net.Conn) Transport {
	return &netTransport{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

func (t *netTransport) ReadLine() (string, error) {
	line, err := t.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return trimLineEnding(line), nil
}

func (t *netTransport) Write(p []byte) error {
	_, err := t.conn.Write(p)
	return err
}

func (t *netTransport) Close() error {
	return t.conn.Close()
}

// trimLineEnding drops the trailing LF and an optional preceding CR.
// Devices end lines with CRLF; tests and some proxies use bare LF.
func trimLineEnding(line string) string {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}

// DialTCP connects to a device's plain-text port (usually port 23).
func DialTCP(ctx context.Context, addr string) (Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tesira: dialing %s: %w", addr, err)
	}
	return NewNetTransport(conn), nil
}

// DialTCPTimeout is DialTCP with a deadline instead of a context.
func DialTCPTimeout(addr string, timeout time.Duration) (Transport, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return DialTCP(ctx, addr)
}
