package dispatch

import (
	"testing"

	"github.com/jessiebe/otel-opamp-go/internal/agentstate"
	"github.com/jessiebe/otel-opamp-go/internal/protobufs"
	"github.com/jessiebe/otel-opamp-go/types"
)

type recordingCallbacks struct {
	commandCalls, errorCalls, healthCheckCalls, remoteConfigCalls, offerCalls, packagesCalls int
	offerEndpoints                                                                           []string
}

func (r *recordingCallbacks) GetConfiguration() (*protobufs.AgentConfigMap, error) { return nil, nil }
func (r *recordingCallbacks) GetFeatures() (uint64, uint64)                        { return 1, 0 }
func (r *recordingCallbacks) OnLoop() (*protobufs.AgentToServer, error)            { return nil, nil }
func (r *recordingCallbacks) OnError(*protobufs.ServerErrorResponse)               { r.errorCalls++ }
func (r *recordingCallbacks) OnHealthCheck(*protobufs.ServerToAgent) (*protobufs.AgentToServer, error) {
	r.healthCheckCalls++
	return nil, nil
}
func (r *recordingCallbacks) OnCommand(*protobufs.ServerToAgentCommand) (*protobufs.AgentToServer, error) {
	r.commandCalls++
	return &protobufs.AgentToServer{}, nil
}
func (r *recordingCallbacks) OnAgentRemoteConfig(*protobufs.AgentRemoteConfig) (*protobufs.AgentToServer, error) {
	r.remoteConfigCalls++
	return &protobufs.AgentToServer{}, nil
}
func (r *recordingCallbacks) OnConnectionSettingsOffers(offer *protobufs.TelemetryConnectionSettings) (*protobufs.AgentToServer, error) {
	r.offerCalls++
	r.offerEndpoints = append(r.offerEndpoints, offer.DestinationEndpoint)
	return nil, nil
}
func (r *recordingCallbacks) OnPackagesAvailable(*protobufs.PackagesAvailable) (*protobufs.AgentToServer, error) {
	r.packagesCalls++
	return &protobufs.AgentToServer{}, nil
}

func newTestDispatcher(cb types.Callbacks) (*Dispatcher, *agentstate.Store) {
	settings := types.ConnectionSettings{InstanceID: "self-id"}.WithDefaults()
	store := agentstate.New(settings, cb)
	return New(store, cb, nil), store
}

func TestDispatchCommandAndError(t *testing.T) {
	cb := &recordingCallbacks{}
	d, _ := newTestDispatcher(cb)

	out := d.Dispatch(&protobufs.ServerToAgent{
		Command:       &protobufs.ServerToAgentCommand{Type: protobufs.CommandTypeRestart},
		ErrorResponse: &protobufs.ServerErrorResponse{Type: protobufs.ServerErrorTypeUnavailable},
	})

	if cb.commandCalls != 1 {
		t.Errorf("commandCalls = %d, want 1", cb.commandCalls)
	}
	if cb.errorCalls != 1 {
		t.Errorf("errorCalls = %d, want 1", cb.errorCalls)
	}
	if len(out) != 1 {
		t.Errorf("expected 1 reply (from on_command), got %d", len(out))
	}
}

func TestDispatchReportFullStateSelf(t *testing.T) {
	cb := &recordingCallbacks{}
	d, store := newTestDispatcher(cb)

	out := d.Dispatch(&protobufs.ServerToAgent{
		InstanceUID: store.InstanceID(),
		Flags:       protobufs.ServerToAgentFlagsReportFullState,
	})

	if cb.healthCheckCalls != 0 {
		t.Errorf("on_health_check should not fire for our own instance_uid, got %d calls", cb.healthCheckCalls)
	}
	if len(out) != 1 {
		t.Fatalf("expected exactly 1 full-state reply, got %d", len(out))
	}
	if out[0].AgentDescription == nil || out[0].Health == nil {
		t.Errorf("expected a full AgentToServer, got %+v", out[0])
	}
}

func TestDispatchReportFullStateOther(t *testing.T) {
	cb := &recordingCallbacks{}
	d, store := newTestDispatcher(cb)

	d.Dispatch(&protobufs.ServerToAgent{
		InstanceUID: "some-other-agent",
		Flags:       protobufs.ServerToAgentFlagsReportFullState,
	})

	if cb.healthCheckCalls != 1 {
		t.Errorf("expected on_health_check to fire for a different instance_uid, got %d calls", cb.healthCheckCalls)
	}
	_ = store
}

func TestDispatchConnectionSettingsOffersAllThree(t *testing.T) {
	cb := &recordingCallbacks{}
	d, _ := newTestDispatcher(cb)

	d.Dispatch(&protobufs.ServerToAgent{
		ConnectionSettings: &protobufs.ConnectionSettingsOffers{
			OwnMetrics: &protobufs.TelemetryConnectionSettings{DestinationEndpoint: "metrics:4317"},
			OwnTraces:  &protobufs.TelemetryConnectionSettings{DestinationEndpoint: "traces:4317"},
			OwnLogs:    &protobufs.TelemetryConnectionSettings{DestinationEndpoint: "logs:4317"},
		},
	})

	if cb.offerCalls != 3 {
		t.Fatalf("offerCalls = %d, want 3", cb.offerCalls)
	}
	want := map[string]bool{"metrics:4317": true, "traces:4317": true, "logs:4317": true}
	for _, ep := range cb.offerEndpoints {
		if !want[ep] {
			t.Errorf("unexpected offer endpoint dispatched: %s", ep)
		}
		delete(want, ep)
	}
	if len(want) != 0 {
		t.Errorf("missing offer dispatches: %v", want)
	}
}

func TestDispatchRemoteConfigAndPackages(t *testing.T) {
	cb := &recordingCallbacks{}
	d, _ := newTestDispatcher(cb)

	out := d.Dispatch(&protobufs.ServerToAgent{
		RemoteConfig:      &protobufs.AgentRemoteConfig{ConfigHash: []byte{1}},
		PackagesAvailable: &protobufs.PackagesAvailable{AllPackagesHash: []byte{2}},
	})

	if cb.remoteConfigCalls != 1 || cb.packagesCalls != 1 {
		t.Errorf("remoteConfigCalls=%d packagesCalls=%d, want 1/1", cb.remoteConfigCalls, cb.packagesCalls)
	}
	if len(out) != 2 {
		t.Errorf("expected 2 replies, got %d", len(out))
	}
}

func TestInvokeOnLoopReturnsNilOnError(t *testing.T) {
	cb := &erroringOnLoop{}
	d, _ := newTestDispatcher(cb)
	if reply := d.InvokeOnLoop(); reply != nil {
		t.Errorf("expected nil reply when on_loop errors, got %+v", reply)
	}
}

type erroringOnLoop struct{ recordingCallbacks }

func (erroringOnLoop) OnLoop() (*protobufs.AgentToServer, error) {
	return nil, errTest
}

var errTest = &testError{}

type testError struct{}

func (*testError) Error() string { return "on_loop failed" }
