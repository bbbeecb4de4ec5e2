// Package netprobe answers "is anything listening there" with a bare TCP connect.
// No payload is written.
package netprobe

import (
	"context"
	"net"
	"strconv"
	"time"
)

// Well-known endpoints.
const (
	GatewayHost       = "127.0.0.1"
	GatewayPort       = 18789
	ReferenceEndpoint = "8.8.8.8:53"
)

// GatewayAddr is the default gateway endpoint.
var GatewayAddr = Addr(GatewayHost, GatewayPort)

// Addr joins host and port.
func Addr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Prober checks TCP reachability.
type Prober interface {
	Reachable(ctx context.Context, addr string, timeout time.Duration) bool
}

// ContextDialer is satisfied by *net.Dialer.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// TCPProber dials with the configured dialer. The timeout bounds name
// resolution as well as the handshake.
type TCPProber struct {
	Dialer ContextDialer
}

// New returns a TCPProber using net.Dialer.
func New() *TCPProber {
	return &TCPProber{Dialer: &net.Dialer{}}
}

// Reachable implements Prober.
func (p *TCPProber) Reachable(ctx context.Context, addr string, timeout time.Duration) bool {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	d := p.Dialer
	if d == nil {
		d = &net.Dialer{}
	}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Func adapts a function to Prober.
type Func func(ctx context.Context, addr string, timeout time.Duration) bool

// Reachable implements Prober.
func (f Func) Reachable(ctx context.Context, addr string, timeout time.Duration) bool {
	return f(ctx, addr, timeout)
}
