// Package dispatch interprets an inbound ServerToAgent field by field and
// invokes the matching user Callbacks method, collecting any replies the
// transport should enqueue. Every callback — dispatch's own and the
// transport's on_loop — runs under the Dispatcher's mutex, so the library
// never invokes two callbacks concurrently even on a multi-threaded host.
package dispatch

import (
	"sync"

	"go.uber.org/zap"

	"github.com/jessiebe/otel-opamp-go/internal/agentstate"
	"github.com/jessiebe/otel-opamp-go/internal/protobufs"
	"github.com/jessiebe/otel-opamp-go/types"
)

// Dispatcher binds a Store and Callbacks set to the one mutex that
// serializes every callback invocation for a client.
type Dispatcher struct {
	mu        sync.Mutex
	store     *agentstate.Store
	callbacks types.Callbacks
	log       *zap.Logger
}

// New constructs a Dispatcher. logger may be nil, in which case a no-op
// logger is used.
func New(store *agentstate.Store, callbacks types.Callbacks, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{store: store, callbacks: callbacks, log: logger.Named("dispatch")}
}

// Dispatch interprets one inbound message and returns any messages the
// transport should append to its outbox, in the order spec.md's dispatch
// table names them.
func (d *Dispatcher) Dispatch(msg *protobufs.ServerToAgent) []*protobufs.AgentToServer {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []*protobufs.AgentToServer

	if msg.Command != nil {
		if reply, err := d.callbacks.OnCommand(msg.Command); err != nil {
			d.log.Warn("on_command callback failed", zap.Error(err))
		} else if reply != nil {
			out = append(out, reply)
		}
	}

	if msg.ErrorResponse != nil {
		d.callbacks.OnError(msg.ErrorResponse)
	}

	if uint64(msg.Flags)&uint64(protobufs.ServerToAgentFlagsReportFullState) != 0 {
		if msg.InstanceUID == d.store.InstanceID() {
			full, err := d.store.GetStatus()
			if err != nil {
				d.log.Warn("failed to rebuild full state", zap.Error(err))
			} else {
				out = append(out, full)
			}
		} else if reply, err := d.callbacks.OnHealthCheck(msg); err != nil {
			d.log.Warn("on_health_check callback failed", zap.Error(err))
		} else if reply != nil {
			out = append(out, reply)
		}
	}

	if msg.RemoteConfig != nil {
		if reply, err := d.callbacks.OnAgentRemoteConfig(msg.RemoteConfig); err != nil {
			d.log.Warn("on_agent_remote_config callback failed", zap.Error(err))
		} else if reply != nil {
			out = append(out, reply)
		}
	}

	if cs := msg.ConnectionSettings; cs != nil {
		if cs.OwnMetrics != nil {
			if reply, err := d.callbacks.OnConnectionSettingsOffers(cs.OwnMetrics); err != nil {
				d.log.Warn("on_connection_settings_offers (own_metrics) callback failed", zap.Error(err))
			} else if reply != nil {
				out = append(out, reply)
			}
		}
		if cs.OwnTraces != nil {
			if reply, err := d.callbacks.OnConnectionSettingsOffers(cs.OwnTraces); err != nil {
				d.log.Warn("on_connection_settings_offers (own_traces) callback failed", zap.Error(err))
			} else if reply != nil {
				out = append(out, reply)
			}
		}
		if cs.OwnLogs != nil {
			if reply, err := d.callbacks.OnConnectionSettingsOffers(cs.OwnLogs); err != nil {
				d.log.Warn("on_connection_settings_offers (own_logs) callback failed", zap.Error(err))
			} else if reply != nil {
				out = append(out, reply)
			}
		}
	}

	if msg.PackagesAvailable != nil {
		if reply, err := d.callbacks.OnPackagesAvailable(msg.PackagesAvailable); err != nil {
			d.log.Warn("on_packages_available callback failed", zap.Error(err))
		} else if reply != nil {
			out = append(out, reply)
		}
	}

	return out
}

// InvokeOnLoop calls the embedder's OnLoop callback under the same mutex
// that serializes Dispatch, so transports should use this instead of
// calling Callbacks.OnLoop directly.
func (d *Dispatcher) InvokeOnLoop() *protobufs.AgentToServer {
	d.mu.Lock()
	defer d.mu.Unlock()

	reply, err := d.callbacks.OnLoop()
	if err != nil {
		d.log.Warn("on_loop callback failed", zap.Error(err))
		return nil
	}
	return reply
}
