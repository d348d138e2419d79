// Package server wraps the decoder, registry and dispatcher behind a
// minimal UDP receive loop. It owns the socket; everything else is a thin
// pass-through to the osc/registry/dispatch packages.
package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/osclib/oscrt/dispatch"
	"github.com/osclib/oscrt/osc"
	"github.com/osclib/oscrt/registry"
)

// errWouldBlock is returned internally when a non-blocking read has no
// datagram ready; it never escapes Run.
var errWouldBlock = errors.New("server: read would block")

// defaultMaxPacketSize matches the reference OSC server's accepted
// datagram size (spec.md §6.1); override with MaxPacketSize if your
// senders produce larger packets.
const defaultMaxPacketSize = 8192

// Option configures a Server at construction time.
type Option func(*options) error

type options struct {
	readTimeout        time.Duration
	maxPacketSize      int
	logger             *slog.Logger
	concurrentDispatch bool
}

// ReadTimeout bounds how long a single blocking read waits before the
// Server checks ctx.Done() and retries. It has no effect once SetBlocking
// is toggled to non-blocking mode, which uses a much shorter internal
// deadline to detect "nothing pending" instead.
func ReadTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.New("server: ReadTimeout must be positive")
		}
		o.readTimeout = d
		return nil
	}
}

// MaxPacketSize overrides the receive buffer size.
func MaxPacketSize(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return errors.New("server: MaxPacketSize must be positive")
		}
		o.maxPacketSize = n
		return nil
	}
}

// Logger overrides the server's slog.Logger.
func Logger(l *slog.Logger) Option {
	return func(o *options) error {
		o.logger = l
		return nil
	}
}

// ConcurrentDispatch, when enabled, hands each decoded root Element to
// dispatch.Process on its own goroutine instead of the receive loop's
// goroutine. This deviates from spec.md §5's single-threaded model; it
// defaults to off so the library matches the spec out of the box.
func ConcurrentDispatch(enabled bool) Option {
	return func(o *options) error {
		o.concurrentDispatch = enabled
		return nil
	}
}

// Server owns a UDP socket plus a method Registry, and drives the
// decode-dispatch loop described in spec.md §5.
type Server struct {
	addr     string
	opts     options
	registry *registry.Registry
	blocking bool
}

// New returns a Server bound (not yet listening) to host:service.
func New(bindHost, bindService string, opts ...Option) (*Server, error) {
	o := options{
		readTimeout:   time.Second,
		maxPacketSize: defaultMaxPacketSize,
		logger:        defaultLogger(),
	}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	return &Server{
		addr:     net.JoinHostPort(bindHost, bindService),
		opts:     o,
		registry: registry.New(),
		blocking: true,
	}, nil
}

// AddMethod registers a handler for address. It is a thin pass-through to
// the underlying Registry.
func (s *Server) AddMethod(address string, fn registry.MethodFunc, userData any) error {
	return s.registry.Register(address, fn, userData)
}

// SetBlocking toggles whether Run waits indefinitely for datagrams
// (blocking, the default) or returns as soon as none is immediately
// available (non-blocking, mirroring the reference server's EWOULDBLOCK
// behavior).
func (s *Server) SetBlocking(blocking bool) {
	s.blocking = blocking
}

// Run opens the socket and serves until ctx is cancelled, a fatal socket
// error occurs, or (in non-blocking mode) no datagram is immediately
// available.
func (s *Server) Run(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", s.addr)
	if err != nil {
		return errors.Wrap(err, "server: listen")
	}
	defer conn.Close()

	return s.Serve(ctx, conn)
}

// Serve drives the receive loop over an already-open connection, useful
// for tests and for callers that want control over socket setup.
func (s *Server) Serve(ctx context.Context, conn net.PacketConn) error {
	buf := make([]byte, s.opts.maxPacketSize)

	var g *errgroup.Group
	if s.opts.concurrentDispatch {
		g, ctx = errgroup.WithContext(ctx)
	}

	var tempDelay time.Duration
	for {
		select {
		case <-ctx.Done():
			if g != nil {
				_ = g.Wait()
			}
			return ctx.Err()
		default:
		}

		n, raddr, err := s.receivePacket(ctx, conn, buf)
		if err != nil {
			if errors.Is(err, errWouldBlock) {
				if !s.blocking {
					if g != nil {
						_ = g.Wait()
					}
					return nil
				}
				continue
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				tempDelay = nextBackoff(tempDelay)
				time.Sleep(tempDelay)
				continue
			}
			if g != nil {
				_ = g.Wait()
			}
			return errors.Wrap(err, "server: receive")
		}
		tempDelay = 0

		data := make([]byte, n)
		copy(data, buf[:n])

		el, err := osc.Decode(data)
		if err != nil {
			s.opts.logger.Warn("dropping malformed packet", "remote", raddr, "error", err)
			continue
		}

		if s.opts.concurrentDispatch {
			g.Go(func() error {
				dispatch.Process(s.registry, el)
				return nil
			})
		} else {
			dispatch.Process(s.registry, el)
		}
	}
}

func nextBackoff(prev time.Duration) time.Duration {
	const (
		initial = 5 * time.Millisecond
		max     = time.Second
	)
	if prev == 0 {
		return initial
	}
	next := prev * 2
	if next > max {
		return max
	}
	return next
}

// receivePacket performs one read, applying the non-blocking deadline
// trick when the server is in non-blocking mode.
func (s *Server) receivePacket(ctx context.Context, conn net.PacketConn, buf []byte) (int, net.Addr, error) {
	deadline := time.Now().Add(s.opts.readTimeout)
	if !s.blocking {
		deadline = time.Now().Add(time.Millisecond)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return 0, nil, errors.Wrap(err, "server: set read deadline")
	}

	n, raddr, err := conn.ReadFrom(buf)
	if err != nil {
		if !s.blocking {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return 0, nil, errWouldBlock
			}
		}
		return 0, nil, err
	}
	return n, raddr, nil
}
