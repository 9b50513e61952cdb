package agentstate

import (
	"time"

	"github.com/jessiebe/otel-opamp-go/internal/hostinfo"
	"github.com/jessiebe/otel-opamp-go/internal/protobufs"
	"github.com/jessiebe/otel-opamp-go/types"
)

// buildDefault assembles the initial AgentToServer: identifying attributes
// from settings, non-identifying attributes from the host info provider
// (falling back to hostinfo.Default() when settings.HostInfo is nil),
// unhealthy AgentHealth stamped with the current start time, an unset
// remote-config status, and empty package statuses.
func buildDefault(settings types.ConnectionSettings, capabilities, flags uint64, configMap *protobufs.AgentConfigMap) *protobufs.AgentToServer {
	provider := settings.HostInfo
	if provider == nil {
		provider = hostinfo.Default()
	}
	osType, osVersion, hostName := provider.Describe()

	var effectiveConfig *protobufs.EffectiveConfig
	if configMap != nil {
		effectiveConfig = &protobufs.EffectiveConfig{ConfigMap: configMap}
	}

	return &protobufs.AgentToServer{
		InstanceUID:  settings.InstanceID,
		Capabilities: capabilities,
		Flags:        flags,
		AgentDescription: &protobufs.AgentDescription{
			IdentifyingAttributes: []*protobufs.KeyValue{
				{Key: "service.name", Value: protobufs.StringValue(settings.Name)},
				{Key: "service.version", Value: protobufs.StringValue(settings.Version)},
				{Key: "service.instance.id", Value: protobufs.StringValue(settings.InstanceID)},
			},
			NonIdentifyingAttributes: []*protobufs.KeyValue{
				{Key: "os.type", Value: protobufs.StringValue(osType)},
				{Key: "os.version", Value: protobufs.StringValue(osVersion)},
				{Key: "host.name", Value: protobufs.StringValue(hostName)},
			},
		},
		Health: &protobufs.AgentHealth{
			Healthy:           false,
			StartTimeUnixNano: uint64(time.Now().UnixNano()),
		},
		EffectiveConfig: effectiveConfig,
		RemoteConfigStatus: &protobufs.RemoteConfigStatus{
			Status: protobufs.RemoteConfigStatusUnset,
		},
		PackageStatuses: &protobufs.PackageStatuses{
			Packages: map[string]*protobufs.PackageStatus{},
		},
	}
}
