package core

import (
	"context"
	"fmt"
	"net"

	"github.com/dsimnet/nodes/pkg/nodes/definition"
	"github.com/dsimnet/nodes/pkg/nodes/queue"
	"github.com/dsimnet/nodes/pkg/nodes/types"
)

// Transport is the send/receive contract every Node uses, shaped
// after the teacher's core.Transport interface (Broadcast/Unicast/
// Listen/Close) but backed directly by net.UDPConn instead of relt:
// the simulation's wire requirement is an unreliable, unordered local
// datagram channel, which is exactly loopback UDP and nothing relt's
// atomic-broadcast guarantees would add.
type Transport interface {
	// Send fires a single datagram at host:port. Errors are I/O
	// failures only; there is no delivery acknowledgement.
	Send(host string, port int, data []byte) error
	// Listen starts the receive loop, pushing every inbound datagram
	// onto q, until the Transport is closed.
	Listen(invoker *Invoker, q *queue.Queue)
	// LocalPort reports the port this transport is bound to.
	LocalPort() int
	Close() error
}

// UDPTransport is the default Transport, grounded on
// other_examples' UDP server reference (net.ListenUDP / ReadFromUDP /
// WriteToUDP) generalized to the single-socket-per-worker scale this
// simulation runs at.
type UDPTransport struct {
	conn   *net.UDPConn
	port   int
	log    types.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewUDPTransport binds a UDP socket on the given port. port == 0
// lets the OS choose an ephemeral port, used by tests.
func NewUDPTransport(port int, log types.Logger) (*UDPTransport, error) {
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("binding udp socket on port %d: %w", port, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	bound := conn.LocalAddr().(*net.UDPAddr).Port
	return &UDPTransport{conn: conn, port: bound, log: log, ctx: ctx, cancel: cancel}, nil
}

func (t *UDPTransport) LocalPort() int { return t.port }

func (t *UDPTransport) Send(host string, port int, data []byte) error {
	addr := &net.UDPAddr{IP: net.ParseIP(resolveLoopback(host)), Port: port}
	_, err := t.conn.WriteToUDP(data, addr)
	return err
}

func resolveLoopback(host string) string {
	if host == "" || host == "localhost" {
		return "127.0.0.1"
	}
	return host
}

// Listen runs the receive loop on its own goroutine, tracked by
// invoker, pushing every datagram onto q. It returns immediately;
// Close unblocks the blocked ReadFromUDP call so the goroutine exits.
func (t *UDPTransport) Listen(invoker *Invoker, q *queue.Queue) {
	invoker.Spawn(func() {
		buf := make([]byte, definition.DatagramBufferSize)
		for {
			select {
			case <-t.ctx.Done():
				return
			default:
			}
			n, _, err := t.conn.ReadFromUDP(buf)
			if err != nil {
				select {
				case <-t.ctx.Done():
					return
				default:
					if t.log != nil {
						t.log.Debugf("transport read error: %v", err)
					}
					continue
				}
			}
			cp := make([]byte, n)
			copy(cp, buf[:n])
			q.Push(cp)
		}
	})
}

func (t *UDPTransport) Close() error {
	t.cancel()
	return t.conn.Close()
}

var _ Transport = (*UDPTransport)(nil)
