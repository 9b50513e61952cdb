// Package protobufs holds the Go types for the OpAMP wire messages.
//
// In a production build these would be generated by protoc from the OpAMP
// .proto IDL (see https://github.com/open-telemetry/opamp-spec). That IDL is
// an external given for this module — nothing here hand-designs the schema,
// it only reproduces the message shapes the client needs to fill in and read
// back, with a hand-written wire codec in codec.go standing in for
// protoc-gen-go output.
package protobufs

// AgentToServer is the outbound message the client sends to the OpAMP server.
type AgentToServer struct {
	InstanceUID        string
	SequenceNum        uint64
	Capabilities        uint64
	Flags               uint64
	AgentDescription    *AgentDescription
	Health              *AgentHealth
	EffectiveConfig     *EffectiveConfig
	RemoteConfigStatus  *RemoteConfigStatus
	PackageStatuses     *PackageStatuses
	AgentDisconnect     *AgentDisconnect
}

// ServerToAgentFlags are the request-modifier bits carried by a ServerToAgent.
type ServerToAgentFlags uint64

const (
	ServerToAgentFlagsUnspecified   ServerToAgentFlags = 0
	ServerToAgentFlagsReportFullState ServerToAgentFlags = 1
)

// ServerToAgent is the inbound message the client receives from the server.
type ServerToAgent struct {
	InstanceUID        string
	Flags               ServerToAgentFlags
	Command             *ServerToAgentCommand
	ErrorResponse        *ServerErrorResponse
	RemoteConfig         *AgentRemoteConfig
	ConnectionSettings   *ConnectionSettingsOffers
	PackagesAvailable    *PackagesAvailable
}

// AgentHealth mirrors the agent's current health, refreshed on every read.
type AgentHealth struct {
	Healthy           bool
	StartTimeUnixNano uint64
	LastError         string
}

// AgentDescription carries OTel-resource-style identifying and
// non-identifying attributes describing this agent instance.
type AgentDescription struct {
	IdentifyingAttributes    []*KeyValue
	NonIdentifyingAttributes []*KeyValue
}

// KeyValue and AnyValue mirror the OTel common proto's attribute shape.
type KeyValue struct {
	Key   string
	Value *AnyValue
}

type AnyValue struct {
	StringValue string
	BoolValue   bool
	IntValue    int64
	HasString   bool
	HasBool     bool
	HasInt      bool
}

func StringValue(s string) *AnyValue { return &AnyValue{StringValue: s, HasString: true} }
func BoolValue(b bool) *AnyValue     { return &AnyValue{BoolValue: b, HasBool: true} }
func IntValue(i int64) *AnyValue     { return &AnyValue{IntValue: i, HasInt: true} }

// EffectiveConfig wraps the agent's currently running configuration.
type EffectiveConfig struct {
	ConfigMap *AgentConfigMap
}

type AgentConfigMap struct {
	ConfigMap map[string]*AgentConfigFile
}

type AgentConfigFile struct {
	Body        []byte
	ContentType string
}

// RemoteConfigStatuses enumerates the outcome of applying a remote config.
type RemoteConfigStatuses int32

const (
	RemoteConfigStatusUnset    RemoteConfigStatuses = 0
	RemoteConfigStatusApplied  RemoteConfigStatuses = 1
	RemoteConfigStatusApplying RemoteConfigStatuses = 2
	RemoteConfigStatusFailed   RemoteConfigStatuses = 3
)

type RemoteConfigStatus struct {
	LastRemoteConfigHash []byte
	Status               RemoteConfigStatuses
	ErrorMessage         string
}

// PackageStatuses reports the install state of every package the agent knows
// about. Reporting only — this module never installs anything.
type PackageStatuses struct {
	Packages                     map[string]*PackageStatus
	ServerProvidedAllPackagesHash []byte
	ErrorMessage                  string
}

type PackageStatusEnum int32

const (
	PackageStatusInstalled      PackageStatusEnum = 0
	PackageStatusInstalling     PackageStatusEnum = 1
	PackageStatusInstallFailed  PackageStatusEnum = 2
	PackageStatusDownloading    PackageStatusEnum = 3
)

type PackageStatus struct {
	Name                  string
	AgentHasVersion        string
	AgentHasHash           []byte
	ServerOfferedVersion   string
	ServerOfferedHash      []byte
	Status                 PackageStatusEnum
	ErrorMessage           string
}

// AgentDisconnect is an empty marker sent as the last message before the
// agent intentionally drops its connection. Not emitted by the FSM directly
// today — reserved for callback-driven graceful shutdown.
type AgentDisconnect struct{}

// CommandType enumerates the commands a ServerToAgentCommand can carry.
type CommandType int32

const (
	CommandTypeRestart CommandType = 0
)

// ServerToAgentCommand asks the agent to take an out-of-band action.
type ServerToAgentCommand struct {
	Type CommandType
}

// ServerErrorType classifies a ServerErrorResponse.
type ServerErrorType int32

const (
	ServerErrorTypeUnknown        ServerErrorType = 0
	ServerErrorTypeBadRequest     ServerErrorType = 1
	ServerErrorTypeUnavailable    ServerErrorType = 2
)

// ServerErrorResponse relays a server-side processing error back to the client.
type ServerErrorResponse struct {
	Type                  ServerErrorType
	ErrorMessage          string
	RetryAfterNanoseconds uint64
	HasRetryAfter         bool
}

// AgentRemoteConfig is a configuration the server is pushing to the agent.
type AgentRemoteConfig struct {
	Config     *AgentConfigMap
	ConfigHash []byte
}

// ConnectionSettingsOffers bundles the server's suggested connection
// parameters for the agent's own telemetry emission.
type ConnectionSettingsOffers struct {
	OwnMetrics *TelemetryConnectionSettings
	OwnTraces  *TelemetryConnectionSettings
	OwnLogs    *TelemetryConnectionSettings
}

type TelemetryConnectionSettings struct {
	DestinationEndpoint string
	Headers             map[string]string
}

// PackagesAvailable lists packages the server has for the agent to fetch.
type PackagesAvailable struct {
	Packages        map[string]*PackageAvailable
	AllPackagesHash []byte
}

type PackageAvailable struct {
	Type    PackageAvailableType
	Version string
	File    *DownloadableFile
	Hash    []byte
}

type PackageAvailableType int32

const (
	PackageAvailableTypeTopLevel PackageAvailableType = 0
	PackageAvailableTypeAddon    PackageAvailableType = 1
)

type DownloadableFile struct {
	DownloadURL string
	ContentHash []byte
}

// Clone returns a copy of m whose Health and RemoteConfigStatus are copied
// as well. AgentDescription, EffectiveConfig, PackageStatuses and
// AgentDisconnect are not copied; the clone shares them with m.
func (m *AgentToServer) Clone() *AgentToServer {
	if m == nil {
		return nil
	}
	c := *m
	if m.Health != nil {
		h := *m.Health
		c.Health = &h
	}
	if m.RemoteConfigStatus != nil {
		r := *m.RemoteConfigStatus
		c.RemoteConfigStatus = &r
	}
	return &c
}
