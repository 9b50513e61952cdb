package types

import "github.com/jessiebe/otel-opamp-go/internal/protobufs"

// Callbacks is the set of hooks the embedder supplies. Every method that can
// produce an outbound reply returns (*protobufs.AgentToServer, error); a nil
// message with a nil error means "nothing to enqueue". Errors are logged and
// swallowed by the caller — a failing callback must never stop the FSM.
type Callbacks interface {
	// GetConfiguration returns the agent's current configuration map, or nil
	// if the embedder has none to report yet.
	GetConfiguration() (*protobufs.AgentConfigMap, error)

	// GetFeatures returns the capabilities/flags bitfields stamped on every
	// outbound message for the lifetime of the client. Called exactly once,
	// on first agent-state initialization.
	GetFeatures() (capabilities uint64, flags uint64)

	// OnLoop is invoked once per poll tick when there is otherwise nothing
	// to send; any returned message is appended to the outbox.
	OnLoop() (*protobufs.AgentToServer, error)

	// OnError sinks a server-reported error. No reply is ever enqueued.
	OnError(inbound *protobufs.ServerErrorResponse)

	// OnHealthCheck is invoked when a ReportFullState request names a child
	// instance_uid other than our own.
	OnHealthCheck(inbound *protobufs.ServerToAgent) (*protobufs.AgentToServer, error)

	OnCommand(inbound *protobufs.ServerToAgentCommand) (*protobufs.AgentToServer, error)
	OnAgentRemoteConfig(inbound *protobufs.AgentRemoteConfig) (*protobufs.AgentToServer, error)
	OnConnectionSettingsOffers(inbound *protobufs.TelemetryConnectionSettings) (*protobufs.AgentToServer, error)
	OnPackagesAvailable(inbound *protobufs.PackagesAvailable) (*protobufs.AgentToServer, error)
}
