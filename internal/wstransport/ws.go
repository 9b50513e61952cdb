// Package wstransport implements the full-duplex OpAMP transport over a
// client-dialed WebSocket connection: outbound messages are flushed as
// binary frames and inbound frames are dispatched inline during poll,
// rather than round-tripping through an inbox the way the HTTP transport
// does.
package wstransport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jessiebe/otel-opamp-go/internal/agentstate"
	"github.com/jessiebe/otel-opamp-go/internal/dispatch"
	"github.com/jessiebe/otel-opamp-go/internal/protobufs"
	"github.com/jessiebe/otel-opamp-go/transport"
	"github.com/jessiebe/otel-opamp-go/types"
)

const (
	backoffBase       = 2 * time.Second
	headerByte        = 0x00
	pollReadTimeout   = 200 * time.Millisecond
	handshakeTimeout  = 10 * time.Second
)

// Transport is the full-duplex WebSocket realization of transport.Transport.
type Transport struct {
	mu sync.Mutex

	endpoint   *url.URL
	settings   types.ConnectionSettings
	store      *agentstate.Store
	dispatcher *dispatch.Dispatcher
	log        *zap.Logger
	dialer     *websocket.Dialer

	conn *websocket.Conn

	outbox           []*protobufs.AgentToServer
	sequenceNum      uint64
	retries          int
	lastKnownHealthy bool
}

// New constructs a WebSocket transport dialing out to endpoint.
func New(endpoint *url.URL, settings types.ConnectionSettings, store *agentstate.Store, dispatcher *dispatch.Dispatcher, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		endpoint:   endpoint,
		settings:   settings,
		store:      store,
		dispatcher: dispatcher,
		log:        logger.Named("wstransport"),
		dialer:     &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}
}

func (t *Transport) Identity() string { return "ws:" + t.endpoint.String() }

// Connect dials the WebSocket endpoint, applying the same exponential
// backoff policy as the HTTP transport's connect probe.
func (t *Transport) Connect(ctx context.Context) (transport.Response, error) {
	maxRetries := t.settings.ConnectRetries
	if maxRetries <= 0 {
		maxRetries = types.DefaultConnectRetries
	}

	header := http.Header{}
	if t.settings.APIKey != "" {
		header.Set("api-key", t.settings.APIKey)
	}

	conn, _, err := t.dialer.DialContext(ctx, t.endpoint.String(), header)
	if err == nil {
		t.mu.Lock()
		t.conn = conn
		t.retries = 0
		t.mu.Unlock()
		if setErr := t.store.SetHealth(true); setErr != nil {
			t.log.Warn("failed to mark agent healthy after connect", zap.Error(setErr))
		}
		return transport.ReplyResponse("connected"), nil
	}

	t.mu.Lock()
	t.retries++
	retries := t.retries
	t.mu.Unlock()

	if retries > maxRetries {
		t.mu.Lock()
		t.retries = 0
		t.mu.Unlock()
		return transport.Response{}, types.NewClientError(types.ErrCodeRetriesExceeded,
			"connect retry limit exceeded", err)
	}

	delay := backoffBase * time.Duration(1<<uint(retries-1))
	t.log.Debug("connect failed, backing off", zap.Int("retries", retries), zap.Duration("delay", delay), zap.Error(err))
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return transport.Response{}, ctx.Err()
	}
	return transport.ErrorResponse(err.Error()), nil
}

// Handshake enqueues the full initial AgentToServer.
func (t *Transport) Handshake(ctx context.Context) (transport.Response, error) {
	full, err := t.store.GetStatus()
	if err != nil {
		return transport.Response{}, fmt.Errorf("wstransport: handshake: %w", err)
	}
	t.mu.Lock()
	t.outbox = append(t.outbox, full)
	t.mu.Unlock()
	return transport.ReplyResponse("handshake"), nil
}

// Poll implements the four-step decision on the WebSocket transport:
// health-transition heartbeat, outbox drain, a single best-effort inbound
// frame read dispatched inline, then on_loop.
func (t *Transport) Poll(ctx context.Context) (transport.Response, error) {
	healthy := t.store.Healthy()

	t.mu.Lock()
	wasHealthy := t.lastKnownHealthy
	t.lastKnownHealthy = healthy
	hasOutbox := len(t.outbox) > 0
	t.mu.Unlock()

	if healthy && !wasHealthy {
		full, err := t.store.GetStatus()
		if err != nil {
			return transport.Response{}, fmt.Errorf("wstransport: poll: %w", err)
		}
		t.enqueue(&protobufs.AgentToServer{InstanceUID: full.InstanceUID, Health: full.Health})
		return transport.ReplyResponse("health-transition"), nil
	}

	if hasOutbox {
		return transport.ReplyResponse("outbox-drain"), nil
	}

	if msg, err := t.readOne(); err != nil {
		return transport.ErrorResponse(err.Error()), nil
	} else if msg != nil {
		for _, reply := range t.dispatcher.Dispatch(msg) {
			t.enqueue(reply)
		}
	}

	if reply := t.dispatcher.InvokeOnLoop(); reply != nil {
		t.enqueue(reply)
	}

	t.mu.Lock()
	filled := len(t.outbox) > 0
	t.mu.Unlock()

	if filled {
		return transport.ReplyResponse("loop"), nil
	}
	return transport.NoneResponse(), nil
}

// readOne reads at most one binary frame without blocking the poll loop for
// longer than pollReadTimeout. A read timeout is not an error — it just
// means nothing arrived this tick.
func (t *Transport) readOne() (*protobufs.ServerToAgent, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil, fmt.Errorf("wstransport: read with no connection")
	}

	if err := conn.SetReadDeadline(time.Now().Add(pollReadTimeout)); err != nil {
		return nil, fmt.Errorf("wstransport: set read deadline: %w", err)
	}

	kind, data, err := conn.ReadMessage()
	if err != nil {
		if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
			return nil, nil
		}
		return nil, fmt.Errorf("wstransport: read: %w", err)
	}
	if kind != websocket.BinaryMessage {
		return nil, nil
	}
	if len(data) < 1 {
		return nil, fmt.Errorf("wstransport: frame missing header byte")
	}

	var msg protobufs.ServerToAgent
	if err := msg.Unmarshal(data[1:]); err != nil {
		return nil, fmt.Errorf("wstransport: decode frame: %w", err)
	}
	return &msg, nil
}

func (t *Transport) enqueue(msg *protobufs.AgentToServer) {
	t.mu.Lock()
	t.outbox = append(t.outbox, msg)
	t.mu.Unlock()
}

// Send flushes the outbox to the socket in insertion order as binary
// frames.
func (t *Transport) Send(ctx context.Context) (transport.Response, error) {
	t.mu.Lock()
	pending := t.outbox
	t.outbox = nil
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return transport.ErrorResponse("no connection"), nil
	}
	if len(pending) == 0 {
		return transport.NoneResponse(), nil
	}

	capabilities, flags := uint64(0), uint64(0)
	if status, err := t.store.GetStatus(); err == nil {
		capabilities, flags = status.Capabilities, status.Flags
	}

	for _, msg := range pending {
		t.mu.Lock()
		t.sequenceNum++
		msg.SequenceNum = t.sequenceNum
		t.mu.Unlock()
		msg.Capabilities = capabilities
		msg.Flags = flags

		payload, err := msg.Marshal()
		if err != nil {
			return transport.ErrorResponse("marshal"), nil
		}
		t.log.Debug("sending payload", zap.Uint64("sequence_num", msg.SequenceNum), zap.Int("bytes", len(payload)))

		frame := append([]byte{headerByte}, payload...)
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			t.log.Warn("send failed", zap.Error(err))
			return transport.ErrorResponse(err.Error()), nil
		}
	}

	return transport.ReplyResponse("sent"), nil
}

// Wait is a no-op; inbound data is read inline during Poll.
func (t *Transport) Wait(ctx context.Context) (transport.Response, error) {
	return transport.ReplyResponse(""), nil
}
