// Package opamp is the public facade of the client library: it chooses a
// transport by endpoint scheme, wires up the agent state store and inbound
// dispatcher, and exposes a single Poll method that advances the
// connection FSM by exactly one tick per call.
package opamp

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/jessiebe/otel-opamp-go/internal/agentstate"
	"github.com/jessiebe/otel-opamp-go/internal/dispatch"
	"github.com/jessiebe/otel-opamp-go/internal/fsm"
	"github.com/jessiebe/otel-opamp-go/internal/httptransport"
	"github.com/jessiebe/otel-opamp-go/internal/wstransport"
	"github.com/jessiebe/otel-opamp-go/transport"
	"github.com/jessiebe/otel-opamp-go/types"
)

// Client drives one OpAMP connection. It is not safe for concurrent Poll
// calls — the caller is expected to poll serially, typically from its own
// event loop, at least once every 30 seconds so the HTTP transport can
// generate its own heartbeat.
type Client struct {
	settings  types.ConnectionSettings
	transport transport.Transport
	state     fsm.State
	log       *zap.Logger
}

// New constructs a Client, selecting the HTTP transport when
// settings.ServerEndpoint starts with "http"/"https" and the WebSocket
// transport otherwise.
func New(settings types.ConnectionSettings, callbacks types.Callbacks, logger *zap.Logger) (*Client, error) {
	settings = settings.WithDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	endpoint, err := joinEndpoint(settings.ServerEndpoint, settings.ListenPath)
	if err != nil {
		return nil, fmt.Errorf("opamp: %w", err)
	}

	store := agentstate.New(settings, callbacks)
	dispatcher := dispatch.New(store, callbacks, logger)

	var t transport.Transport
	switch {
	case strings.HasPrefix(settings.ServerEndpoint, "http"):
		t = httptransport.New(endpoint, settings, store, dispatcher, logger)
	default:
		t = wstransport.New(endpoint, settings, store, dispatcher, logger)
	}

	return &Client{
		settings:  settings,
		transport: t,
		state:     fsm.State{Name: fsm.Disconnected},
		log:       logger.Named("opamp"),
	}, nil
}

func joinEndpoint(serverEndpoint, listenPath string) (*url.URL, error) {
	u, err := url.Parse(serverEndpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing server_endpoint: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + listenPath
	return u, nil
}

// Poll advances the connection FSM by exactly one transition and returns
// the resulting state name.
func (c *Client) Poll(ctx context.Context) fsm.Name {
	next := fsm.Evaluate(ctx, c.state, c.transport)
	if next.Name != c.state.Name {
		c.log.Debug("state transition",
			zap.String("from", c.state.Name.String()),
			zap.String("to", next.Name.String()),
			zap.String("token", next.Token))
	}
	c.state = next
	return c.state.Name
}

// State returns the FSM's current state without advancing it.
func (c *Client) State() fsm.State { return c.state }

// Identity returns the underlying transport's identity string, for logging.
func (c *Client) Identity() string { return c.transport.Identity() }
