package rpc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

const (
	defaultReconnectDelay = 10 * time.Second
	defaultIOTimeout      = 60 * time.Second
	defaultQueueSize      = 64
)

// DialFunc opens a connection to addr. The context bounds a single attempt.
type DialFunc func(ctx context.Context, addr string) (net.Conn, error)

// TransportOption configures a [Transport] created by [Dial].
type TransportOption func(*Transport)

// WithDialer replaces the default TCP dialer.
func WithDialer(dial DialFunc) TransportOption {
	return func(t *Transport) {
		if dial != nil {
			t.dial = dial
		}
	}
}

// WithReconnectDelay sets the fixed backoff between connection attempts.
func WithReconnectDelay(d time.Duration) TransportOption {
	return func(t *Transport) {
		if d > 0 {
			t.reconnectDelay = d
		}
	}
}

// WithIOTimeout sets the deadline applied to each dial, write and read.
func WithIOTimeout(d time.Duration) TransportOption {
	return func(t *Transport) {
		if d > 0 {
			t.ioTimeout = d
		}
	}
}

// WithQueueSize sets how many submitted requests may wait for the worker
// before [Transport.Send] blocks.
func WithQueueSize(n int) TransportOption {
	return func(t *Transport) {
		if n > 0 {
			t.queueSize = n
		}
	}
}

// WithMaxFrameSize bounds the size of a single response body.
func WithMaxFrameSize(n int) TransportOption {
	return func(t *Transport) {
		if n > 0 {
			t.maxFrameSize = n
		}
	}
}

// WithTransportLogger sets the logger used for connection events.
func WithTransportLogger(logger *slog.Logger) TransportOption {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// call is a single submitted request and its completion handle.
type call struct {
	frame []byte
	done  chan callResult // buffered, the worker never blocks on it
}

type callResult struct {
	body []byte
	err  error
}

// Transport is a framed request/response connection to the RPC proxy.
//
// A single worker goroutine owns the connection and executes requests one at
// a time in submission order: exactly one request is outstanding on the wire.
// Any I/O failure or malformed response drops the connection; the worker then
// re-dials with a fixed backoff, indefinitely, and re-sends the request that
// was in flight. Requests queued behind it wait until the connection recovers.
//
// Send is safe for concurrent use. The worker only stops on [Transport.Close].
type Transport struct {
	addr           string
	dial           DialFunc
	reconnectDelay time.Duration
	ioTimeout      time.Duration
	queueSize      int
	maxFrameSize   int
	logger         *slog.Logger

	calls   chan call
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}

	closeOnce sync.Once

	// mu guards conn for Close; the worker is the only writer
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// Dial creates a [Transport] for addr and starts its worker.
//
// Dial never fails: the connection is established by the worker and retried
// until it succeeds or the transport is closed.
func Dial(addr string, opts ...TransportOption) *Transport {
	t := &Transport{
		addr:           addr,
		reconnectDelay: defaultReconnectDelay,
		ioTimeout:      defaultIOTimeout,
		queueSize:      defaultQueueSize,
		maxFrameSize:   DefaultMaxFrameSize,
		logger:         slog.Default(),
		stopped:        make(chan struct{}),
	}
	t.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "tcp", addr)
	}
	for _, opt := range opts {
		opt(t)
	}

	t.calls = make(chan call, t.queueSize)
	t.ctx, t.cancel = context.WithCancel(context.Background())

	go t.run()
	return t
}

// Send frames payload, waits for the matching response and returns its body.
//
// Once a request is accepted into the queue it is executed even if ctx is
// cancelled; cancellation only stops the caller from waiting for it.
func (t *Transport) Send(ctx context.Context, payload []byte) ([]byte, error) {
	c := call{
		frame: EncodeFrame(payload),
		done:  make(chan callResult, 1),
	}

	select {
	case t.calls <- c:
	case <-t.ctx.Done():
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-c.done:
		return r.body, r.err
	case <-t.stopped:
		// the worker may have completed the call right before stopping
		select {
		case r := <-c.done:
			return r.body, r.err
		default:
			return nil, ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the worker, closes the connection and waits for the worker to
// exit. Pending and future calls to Send return [ErrClosed]. Safe to call
// multiple times.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.cancel()
		t.mu.Lock()
		if t.conn != nil {
			_ = t.conn.Close()
		}
		t.mu.Unlock()
	})
	<-t.stopped
	return nil
}

// run is the worker loop. It owns the connection.
func (t *Transport) run() {
	defer close(t.stopped)
	defer t.disconnect()

	for {
		select {
		case <-t.ctx.Done():
			return
		case c := <-t.calls:
			body, err := t.roundTrip(c.frame)
			c.done <- callResult{body: body, err: err}
			if errors.Is(err, ErrClosed) {
				return
			}
		}
	}
}

// roundTrip sends frame and reads one response, reconnecting and re-sending
// on failure until it succeeds or the transport is closed. An oversized
// response is the server's answer to this request, so it is returned to the
// caller without a resend and the connection is replaced.
func (t *Transport) roundTrip(frame []byte) ([]byte, error) {
	for {
		if t.conn == nil && !t.connect() {
			return nil, ErrClosed
		}

		body, err := t.exchange(frame)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, ErrFrameTooLarge) {
			t.logger.Warn("rpc response rejected",
				"addr", t.addr,
				"error", err,
			)
			t.disconnect()
			return nil, err
		}

		if t.ctx.Err() != nil {
			return nil, ErrClosed
		}
		t.logger.Warn("rpc connection failed",
			"addr", t.addr,
			"error", err,
			"retry_in", t.reconnectDelay.String(),
		)
		t.disconnect()
		if !t.sleep() {
			return nil, ErrClosed
		}
	}
}

// exchange performs one write and one framed read on the current connection.
func (t *Transport) exchange(frame []byte) ([]byte, error) {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.ioTimeout)); err != nil {
		return nil, fmt.Errorf("failed to set write deadline: %w", err)
	}
	if _, err := t.conn.Write(frame); err != nil {
		return nil, fmt.Errorf("failed to write request: %w", err)
	}

	if err := t.conn.SetReadDeadline(time.Now().Add(t.ioTimeout)); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}
	body, err := ReadFrame(t.reader, t.maxFrameSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// connect dials until a connection is established. It returns false if the
// transport was closed first.
func (t *Transport) connect() bool {
	for {
		ctx, cancel := context.WithTimeout(t.ctx, t.ioTimeout)
		conn, err := t.dial(ctx, t.addr)
		cancel()

		if err == nil {
			t.mu.Lock()
			if t.ctx.Err() != nil {
				t.mu.Unlock()
				_ = conn.Close()
				return false
			}
			t.conn = conn
			t.reader = bufio.NewReader(conn)
			t.mu.Unlock()

			t.logger.Debug("rpc connected", "addr", t.addr)
			return true
		}

		if t.ctx.Err() != nil {
			return false
		}
		t.logger.Warn("rpc connect failed",
			"addr", t.addr,
			"error", err,
			"retry_in", t.reconnectDelay.String(),
		)
		if !t.sleep() {
			return false
		}
	}
}

// disconnect drops the current connection, if any.
func (t *Transport) disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
		t.reader = nil
	}
}

// sleep waits for the reconnect delay. It returns false if the transport was
// closed while waiting.
func (t *Transport) sleep() bool {
	timer := time.NewTimer(t.reconnectDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-t.ctx.Done():
		return false
	}
}
