package protobufs

import (
	"bytes"
	"testing"
)

func TestAgentToServerRoundTrip(t *testing.T) {
	original := &AgentToServer{
		InstanceUID:  "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		SequenceNum:  42,
		Capabilities: 7,
		Flags:        1,
		AgentDescription: &AgentDescription{
			IdentifyingAttributes: []*KeyValue{
				{Key: "service.name", Value: StringValue("collector")},
				{Key: "service.instance.id", Value: StringValue("abc")},
			},
			NonIdentifyingAttributes: []*KeyValue{
				{Key: "os.type", Value: StringValue("linux")},
			},
		},
		Health: &AgentHealth{
			Healthy:           true,
			StartTimeUnixNano: 123456789,
			LastError:         "",
		},
		EffectiveConfig: &EffectiveConfig{
			ConfigMap: &AgentConfigMap{
				ConfigMap: map[string]*AgentConfigFile{
					"config.yaml": {Body: []byte("receivers: {}"), ContentType: "text/yaml"},
				},
			},
		},
		RemoteConfigStatus: &RemoteConfigStatus{
			LastRemoteConfigHash: []byte{1, 2, 3},
			Status:               RemoteConfigStatusApplied,
			ErrorMessage:         "",
		},
		PackageStatuses: &PackageStatuses{
			Packages: map[string]*PackageStatus{
				"core": {Name: "core", AgentHasVersion: "1.0.0", Status: PackageStatusInstalled},
			},
			ServerProvidedAllPackagesHash: []byte{9, 9},
		},
	}

	encoded, err := original.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded AgentToServer
	if err := decoded.Unmarshal(encoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.InstanceUID != original.InstanceUID {
		t.Errorf("InstanceUID = %q, want %q", decoded.InstanceUID, original.InstanceUID)
	}
	if decoded.SequenceNum != original.SequenceNum {
		t.Errorf("SequenceNum = %d, want %d", decoded.SequenceNum, original.SequenceNum)
	}
	if decoded.Capabilities != original.Capabilities || decoded.Flags != original.Flags {
		t.Errorf("Capabilities/Flags = %d/%d, want %d/%d", decoded.Capabilities, decoded.Flags, original.Capabilities, original.Flags)
	}
	if decoded.AgentDescription == nil || len(decoded.AgentDescription.IdentifyingAttributes) != 2 {
		t.Fatalf("AgentDescription not round-tripped: %+v", decoded.AgentDescription)
	}
	if decoded.AgentDescription.IdentifyingAttributes[0].Value.StringValue != "collector" {
		t.Errorf("identifying attribute 0 = %+v", decoded.AgentDescription.IdentifyingAttributes[0])
	}
	if !decoded.Health.Healthy || decoded.Health.StartTimeUnixNano != 123456789 {
		t.Errorf("Health not round-tripped: %+v", decoded.Health)
	}
	file, ok := decoded.EffectiveConfig.ConfigMap.ConfigMap["config.yaml"]
	if !ok || !bytes.Equal(file.Body, []byte("receivers: {}")) || file.ContentType != "text/yaml" {
		t.Errorf("EffectiveConfig not round-tripped: %+v", decoded.EffectiveConfig)
	}
	if decoded.RemoteConfigStatus.Status != RemoteConfigStatusApplied || !bytes.Equal(decoded.RemoteConfigStatus.LastRemoteConfigHash, []byte{1, 2, 3}) {
		t.Errorf("RemoteConfigStatus not round-tripped: %+v", decoded.RemoteConfigStatus)
	}
	pkg, ok := decoded.PackageStatuses.Packages["core"]
	if !ok || pkg.AgentHasVersion != "1.0.0" || pkg.Status != PackageStatusInstalled {
		t.Errorf("PackageStatuses not round-tripped: %+v", decoded.PackageStatuses)
	}
}

func TestServerToAgentRoundTrip(t *testing.T) {
	original := &ServerToAgent{
		InstanceUID: "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Flags:       ServerToAgentFlagsReportFullState,
		Command:     &ServerToAgentCommand{Type: CommandTypeRestart},
		ErrorResponse: &ServerErrorResponse{
			Type:                  ServerErrorTypeUnavailable,
			ErrorMessage:          "overloaded",
			RetryAfterNanoseconds: 5_000_000_000,
			HasRetryAfter:         true,
		},
		RemoteConfig: &AgentRemoteConfig{
			Config: &AgentConfigMap{
				ConfigMap: map[string]*AgentConfigFile{
					"config.yaml": {Body: []byte("x: 1")},
				},
			},
			ConfigHash: []byte{7},
		},
		ConnectionSettings: &ConnectionSettingsOffers{
			OwnMetrics: &TelemetryConnectionSettings{
				DestinationEndpoint: "http://collector:4318",
				Headers:             map[string]string{"x-api-key": "secret"},
			},
		},
		PackagesAvailable: &PackagesAvailable{
			Packages: map[string]*PackageAvailable{
				"core": {
					Type:    PackageAvailableTypeTopLevel,
					Version: "2.0.0",
					File:    &DownloadableFile{DownloadURL: "https://example.com/core.tar.gz", ContentHash: []byte{4, 5}},
					Hash:    []byte{6},
				},
			},
			AllPackagesHash: []byte{8},
		},
	}

	encoded, err := original.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded ServerToAgent
	if err := decoded.Unmarshal(encoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Flags&ServerToAgentFlagsReportFullState == 0 {
		t.Errorf("ReportFullState flag lost: %v", decoded.Flags)
	}
	if decoded.Command == nil || decoded.Command.Type != CommandTypeRestart {
		t.Errorf("Command not round-tripped: %+v", decoded.Command)
	}
	if decoded.ErrorResponse == nil || !decoded.ErrorResponse.HasRetryAfter || decoded.ErrorResponse.RetryAfterNanoseconds != 5_000_000_000 {
		t.Errorf("ErrorResponse not round-tripped: %+v", decoded.ErrorResponse)
	}
	if decoded.RemoteConfig == nil || decoded.RemoteConfig.Config.ConfigMap["config.yaml"] == nil {
		t.Errorf("RemoteConfig not round-tripped: %+v", decoded.RemoteConfig)
	}
	if decoded.ConnectionSettings == nil || decoded.ConnectionSettings.OwnMetrics == nil ||
		decoded.ConnectionSettings.OwnMetrics.Headers["x-api-key"] != "secret" {
		t.Errorf("ConnectionSettings not round-tripped: %+v", decoded.ConnectionSettings)
	}
	pkg := decoded.PackagesAvailable.Packages["core"]
	if pkg == nil || pkg.Version != "2.0.0" || pkg.File.DownloadURL != "https://example.com/core.tar.gz" {
		t.Errorf("PackagesAvailable not round-tripped: %+v", pkg)
	}
}

func TestAnyValueOneof(t *testing.T) {
	cases := []*AnyValue{
		StringValue("hello"),
		BoolValue(true),
		IntValue(-7),
	}
	for _, v := range cases {
		kv := &KeyValue{Key: "k", Value: v}
		encoded := marshalKeyValue(kv)
		decoded, err := unmarshalKeyValue(encoded)
		if err != nil {
			t.Fatalf("unmarshalKeyValue: %v", err)
		}
		if decoded.Value.HasString != v.HasString || decoded.Value.HasBool != v.HasBool || decoded.Value.HasInt != v.HasInt {
			t.Errorf("oneof presence mismatch: got %+v, want %+v", decoded.Value, v)
		}
	}
}
