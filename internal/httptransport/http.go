// Package httptransport implements the half-duplex OpAMP transport: each
// outbound message is POSTed and the HTTP response carries the server's
// reply inline. Connect probes the endpoint with a HEAD request and backs
// off exponentially on failure; poll/send implement the outbox/inbox
// draining logic the FSM relies on to decide its next transition.
package httptransport

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jessiebe/otel-opamp-go/internal/agentstate"
	"github.com/jessiebe/otel-opamp-go/internal/dispatch"
	"github.com/jessiebe/otel-opamp-go/internal/protobufs"
	"github.com/jessiebe/otel-opamp-go/transport"
	"github.com/jessiebe/otel-opamp-go/types"
)

const (
	requestTimeout  = 10 * time.Second
	heartbeatPeriod = 30 * time.Second
	backoffBase     = 2 * time.Second
	headerByte      = 0x00
)

// Transport is the half-duplex HTTP realization of transport.Transport.
type Transport struct {
	mu sync.Mutex

	endpoint   *url.URL
	settings   types.ConnectionSettings
	httpClient *http.Client
	store      *agentstate.Store
	dispatcher *dispatch.Dispatcher
	log        *zap.Logger

	outbox []*protobufs.AgentToServer
	inbox  []*protobufs.ServerToAgent

	sequenceNum    uint64
	retries        int
	lastSentAt     time.Time
	lastKnownHealthy bool
}

// New constructs an HTTP transport. endpoint is server_endpoint+listen_path,
// already joined and parsed by the caller (the public facade).
func New(endpoint *url.URL, settings types.ConnectionSettings, store *agentstate.Store, dispatcher *dispatch.Dispatcher, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		endpoint:   endpoint,
		settings:   settings,
		httpClient: &http.Client{Timeout: requestTimeout},
		store:      store,
		dispatcher: dispatcher,
		log:        logger.Named("httptransport"),
	}
}

func (t *Transport) Identity() string { return "http:" + t.endpoint.String() }

// Connect probes the endpoint with a HEAD request. Any response that is not
// 404 is treated as "server present" — many deployments return 405/401 on
// HEAD but are otherwise healthy. On failure it sleeps the exponential
// backoff delay (base 2s, exponent = retry count) before returning an Error
// response so the FSM retries; once the retry cap is exhausted it returns a
// hard error, resetting the counter for the next reconnect cycle.
func (t *Transport) Connect(ctx context.Context) (transport.Response, error) {
	maxRetries := t.settings.ConnectRetries
	if maxRetries <= 0 {
		maxRetries = types.DefaultConnectRetries
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, t.endpoint.String(), nil)
	if err != nil {
		return transport.Response{}, fmt.Errorf("httptransport: building connect probe: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err == nil {
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			err = fmt.Errorf("httptransport: connect probe returned 404")
		}
	}
	if err == nil {
		t.mu.Lock()
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
		return transport.Response{}, fmt.Errorf("httptransport: handshake: %w", err)
	}
	t.mu.Lock()
	t.outbox = append(t.outbox, full)
	t.mu.Unlock()
	return transport.ReplyResponse("handshake"), nil
}

// Poll implements the four-step decision documented on the HTTP transport:
// health-transition heartbeat, outbox drain, idle heartbeat, then inline
// inbox dispatch plus on_loop.
func (t *Transport) Poll(ctx context.Context) (transport.Response, error) {
	healthy := t.store.Healthy()

	t.mu.Lock()
	wasHealthy := t.lastKnownHealthy
	t.lastKnownHealthy = healthy
	hasOutbox := len(t.outbox) > 0
	idleFor := time.Since(t.lastSentAt)
	t.mu.Unlock()

	if healthy && !wasHealthy {
		full, err := t.store.GetStatus()
		if err != nil {
			return transport.Response{}, fmt.Errorf("httptransport: poll: %w", err)
		}
		msg := &protobufs.AgentToServer{InstanceUID: full.InstanceUID, Health: full.Health}
		t.enqueue(msg)
		return transport.ReplyResponse("health-transition"), nil
	}

	if hasOutbox {
		return transport.ReplyResponse("outbox-drain"), nil
	}

	if t.lastSentAt.IsZero() || idleFor > heartbeatPeriod {
		t.enqueue(&protobufs.AgentToServer{InstanceUID: t.settings.InstanceID})
		return transport.ReplyResponse("heartbeat"), nil
	}

	t.mu.Lock()
	var inboundMsg *protobufs.ServerToAgent
	if len(t.inbox) > 0 {
		inboundMsg = t.inbox[0]
		t.inbox = t.inbox[1:]
	}
	t.mu.Unlock()

	if inboundMsg != nil {
		for _, reply := range t.dispatcher.Dispatch(inboundMsg) {
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

func (t *Transport) enqueue(msg *protobufs.AgentToServer) {
	t.mu.Lock()
	t.outbox = append(t.outbox, msg)
	t.mu.Unlock()
}

// Send drains the outbox, POSTing each message and pushing its decoded
// response onto the inbox.
func (t *Transport) Send(ctx context.Context) (transport.Response, error) {
	t.mu.Lock()
	pending := t.outbox
	t.outbox = nil
	t.mu.Unlock()

	if len(pending) == 0 {
		return transport.NoneResponse(), nil
	}

	t.mu.Lock()
	t.lastSentAt = time.Now()
	t.mu.Unlock()

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

		reply, err := t.postMessage(ctx, payload)
		if err != nil {
			t.log.Warn("send failed", zap.Error(err))
			return transport.ErrorResponse(err.Error()), nil
		}

		t.mu.Lock()
		t.inbox = append(t.inbox, reply)
		t.mu.Unlock()
	}

	return transport.ReplyResponse("sent"), nil
}

func (t *Transport) postMessage(ctx context.Context, payload []byte) (*protobufs.ServerToAgent, error) {
	body := append([]byte{headerByte}, payload...)

	var requestBody io.Reader = bytes.NewReader(body)
	if t.settings.Compress {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(body); err != nil {
			return nil, fmt.Errorf("httptransport: gzip request: %w", err)
		}
		if err := gz.Close(); err != nil {
			return nil, fmt.Errorf("httptransport: gzip request: %w", err)
		}
		requestBody = &buf
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint.String(), requestBody)
	if err != nil {
		return nil, fmt.Errorf("httptransport: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-protobuf")
	req.Header.Set("api-key", t.settings.APIKey)
	if t.settings.Compress {
		req.Header.Set("Content-Encoding", "gzip")
		req.Header.Set("Accept-Encoding", "gzip")
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httptransport: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("httptransport: server returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httptransport: reading response: %w", err)
	}

	if resp.Header.Get("Content-Encoding") == "gzip" {
		raw, err = gunzip(raw)
		if err != nil {
			return nil, fmt.Errorf("httptransport: gunzip response: %w", err)
		}
	}

	if len(raw) < 1 {
		return nil, fmt.Errorf("httptransport: response missing header byte")
	}
	var out protobufs.ServerToAgent
	if err := out.Unmarshal(raw[1:]); err != nil {
		return nil, fmt.Errorf("httptransport: decode response: %w", err)
	}
	return &out, nil
}

// gunzip decompresses data, growing its output buffer as needed instead of
// reserving a fixed-size one — a fixed 4 KiB buffer truncates any payload
// larger than that.
func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Wait is a no-op for the half-duplex transport; there is no stream to wait
// on between polls.
func (t *Transport) Wait(ctx context.Context) (transport.Response, error) {
	return transport.ReplyResponse(""), nil
}
