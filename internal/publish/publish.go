// Package publish forwards the events of a running solving session to a
// socket.io endpoint.
package publish

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/mzngo/internal/ctxlog"
	"github.com/vk/mzngo/protocol"
	"github.com/vk/mzngo/result"
	"github.com/vk/mzngo/session"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Event names emitted on the socket.
const (
	EventSolution  = "solution"
	EventStatus    = "status"
	EventStatistic = "statistic"
	EventWarning   = "warning"
	EventError     = "session_error"
	EventDone      = "done"
)

// DefaultConnectTimeout bounds the wait for the initial connection.
const DefaultConnectTimeout = 15 * time.Second

// Emitter is the part of a socket.io client the publisher needs.
type Emitter interface {
	Emit(event string, args ...any) error
}

// Config describes the endpoint to publish to.
type Config struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Publisher emits session updates under a fixed session id.
type Publisher struct {
	emitter   Emitter
	sessionID string
	close     func()
}

// New wraps an already connected emitter.
func New(e Emitter, sessionID string) *Publisher {
	return &Publisher{emitter: e, sessionID: sessionID, close: func() {}}
}

// Dial connects to the socket.io endpoint and waits until the connection is
// established, refused, or the timeout expires.
func Dial(ctx context.Context, cfg Config, sessionID string) (*Publisher, error) {
	_, logger := ctxlog.With(ctx, "component", "publish", "url", cfg.URL)

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse publish URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("publish URL %q must be absolute", cfg.URL)
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connected := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("🔌 Publisher connected", "sid", io.Id())
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connection refused")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		logger.Debug("Publisher connection failed.", "error", err)
		connected <- err
	})

	logger.Debug("Connecting publisher.")
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}

	p := New(socketEmitter{io}, sessionID)
	p.close = func() {
		logger.Debug("Disconnecting publisher.", "sid", io.Id())
		io.Disconnect()
	}
	return p, nil
}

// Close disconnects the underlying socket, if any.
func (p *Publisher) Close() {
	p.close()
}

// Publish emits one session update. Events that carry nothing worth
// forwarding (comments, checker text) are skipped.
func (p *Publisher) Publish(u session.Update) error {
	name, payload, err := Payload(u)
	if err != nil || name == "" {
		return err
	}
	payload["session_id"] = p.sessionID
	if err := p.emitter.Emit(name, payload); err != nil {
		return fmt.Errorf("emit %s: %w", name, err)
	}
	return nil
}

// Done emits the final status of a finished session.
func (p *Publisher) Done(res *result.Result, runErr error) error {
	payload := map[string]any{
		"session_id": p.sessionID,
		"status":     res.Status.String(),
		"solutions":  len(res.Solutions),
		"elapsed_ms": res.Elapsed.Milliseconds(),
	}
	if runErr != nil {
		payload["error"] = runErr.Error()
	}
	return p.emitter.Emit(EventDone, payload)
}

// Forward publishes every update until the channel closes. Emit
// failures are logged and do not interrupt the session.
func (p *Publisher) Forward(ctx context.Context, updates <-chan session.Update) {
	logger := ctxlog.FromContext(ctx)
	for u := range updates {
		if err := p.Publish(u); err != nil {
			logger.Warn("Failed to publish session update", "event", fmt.Sprint(u.Event), "error", err)
		}
	}
}

// Payload converts an update to an event name and a plain JSON-friendly
// payload. An empty name means the update is not forwarded.
func Payload(u session.Update) (string, map[string]any, error) {
	switch ev := u.Event.(type) {
	case protocol.SolutionFound:
		payload := map[string]any{"index": ev.Index}
		if ev.HasTime {
			payload["time_ms"] = ev.Time.Milliseconds()
		}
		if u.Err != nil {
			payload["error"] = u.Err.Error()
			return EventSolution, payload, nil
		}
		if u.Solution != nil {
			fields, err := u.Solution.Map()
			if err != nil {
				return "", nil, fmt.Errorf("solution %d: %w", ev.Index, err)
			}
			payload["fields"] = fields
		}
		return EventSolution, payload, nil
	case protocol.StatusChanged:
		return EventStatus, map[string]any{
			"status": result.FromToken(ev.Token).String(),
		}, nil
	case protocol.StatisticRecord:
		v := ev.Value
		if d, ok := v.(time.Duration); ok {
			v = d.Seconds()
		}
		return EventStatistic, map[string]any{"key": ev.Key, "value": v}, nil
	case protocol.Warning:
		return EventWarning, map[string]any{"message": ev.Message}, nil
	case protocol.Error:
		return EventError, map[string]any{"message": ev.Err.Error(), "fatal": ev.Fatal}, nil
	}
	return "", nil, nil
}

type socketEmitter struct {
	io *socket.Socket
}

func (s socketEmitter) Emit(event string, args ...any) error {
	if !s.io.Connected() {
		return errors.New("socket is not connected")
	}
	s.io.Emit(event, args...)
	return nil
}
