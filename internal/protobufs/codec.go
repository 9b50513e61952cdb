package protobufs

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Marshal/Unmarshal implement the wire encoding of each OpAMP message by
// hand using protowire, the low-level varint/tag/length-delimited primitives
// the protobuf module exports for exactly this purpose — writing a codec
// without running protoc against a .proto file. Field numbers below are
// local to this module; they only need to round-trip against themselves.

// Marshal encodes an AgentToServer.
func (m *AgentToServer) Marshal() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	var b []byte
	b = appendStringField(b, 1, m.InstanceUID)
	b = appendVarintField(b, 2, m.SequenceNum)
	b = appendVarintField(b, 3, m.Capabilities)
	b = appendVarintField(b, 4, m.Flags)
	if m.AgentDescription != nil {
		b = appendMessageField(b, 5, marshalAgentDescription(m.AgentDescription))
	}
	if m.Health != nil {
		b = appendMessageField(b, 6, marshalAgentHealth(m.Health))
	}
	if m.EffectiveConfig != nil {
		b = appendMessageField(b, 7, marshalEffectiveConfig(m.EffectiveConfig))
	}
	if m.RemoteConfigStatus != nil {
		b = appendMessageField(b, 8, marshalRemoteConfigStatus(m.RemoteConfigStatus))
	}
	if m.PackageStatuses != nil {
		b = appendMessageField(b, 9, marshalPackageStatuses(m.PackageStatuses))
	}
	if m.AgentDisconnect != nil {
		b = appendMessageField(b, 10, nil)
	}
	return b, nil
}

// Unmarshal decodes an AgentToServer.
func (m *AgentToServer) Unmarshal(data []byte) error {
	return forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error) {
		switch num {
		case 1:
			s, n, err := consumeString(raw)
			m.InstanceUID = s
			return n, err
		case 2:
			u, n, err := consumeVarint(raw)
			m.SequenceNum = u
			return n, err
		case 3:
			u, n, err := consumeVarint(raw)
			m.Capabilities = u
			return n, err
		case 4:
			u, n, err := consumeVarint(raw)
			m.Flags = u
			return n, err
		case 5:
			msg, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			m.AgentDescription, err = unmarshalAgentDescription(msg)
			return n, err
		case 6:
			msg, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			m.Health, err = unmarshalAgentHealth(msg)
			return n, err
		case 7:
			msg, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			m.EffectiveConfig, err = unmarshalEffectiveConfig(msg)
			return n, err
		case 8:
			msg, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			m.RemoteConfigStatus, err = unmarshalRemoteConfigStatus(msg)
			return n, err
		case 9:
			msg, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			m.PackageStatuses, err = unmarshalPackageStatuses(msg)
			return n, err
		case 10:
			_, n, err := consumeMessage(raw)
			m.AgentDisconnect = &AgentDisconnect{}
			return n, err
		default:
			return skipField(typ, raw)
		}
	})
}

// Marshal encodes a ServerToAgent.
func (m *ServerToAgent) Marshal() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	var b []byte
	b = appendStringField(b, 1, m.InstanceUID)
	b = appendVarintField(b, 2, uint64(m.Flags))
	if m.Command != nil {
		b = appendMessageField(b, 3, marshalCommand(m.Command))
	}
	if m.ErrorResponse != nil {
		b = appendMessageField(b, 4, marshalErrorResponse(m.ErrorResponse))
	}
	if m.RemoteConfig != nil {
		b = appendMessageField(b, 5, marshalAgentRemoteConfig(m.RemoteConfig))
	}
	if m.ConnectionSettings != nil {
		b = appendMessageField(b, 6, marshalConnectionSettingsOffers(m.ConnectionSettings))
	}
	if m.PackagesAvailable != nil {
		b = appendMessageField(b, 7, marshalPackagesAvailable(m.PackagesAvailable))
	}
	return b, nil
}

// Unmarshal decodes a ServerToAgent.
func (m *ServerToAgent) Unmarshal(data []byte) error {
	return forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error) {
		switch num {
		case 1:
			s, n, err := consumeString(raw)
			m.InstanceUID = s
			return n, err
		case 2:
			u, n, err := consumeVarint(raw)
			m.Flags = ServerToAgentFlags(u)
			return n, err
		case 3:
			msg, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			m.Command, err = unmarshalCommand(msg)
			return n, err
		case 4:
			msg, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			m.ErrorResponse, err = unmarshalErrorResponse(msg)
			return n, err
		case 5:
			msg, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			m.RemoteConfig, err = unmarshalAgentRemoteConfig(msg)
			return n, err
		case 6:
			msg, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			m.ConnectionSettings, err = unmarshalConnectionSettingsOffers(msg)
			return n, err
		case 7:
			msg, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			m.PackagesAvailable, err = unmarshalPackagesAvailable(msg)
			return n, err
		default:
			return skipField(typ, raw)
		}
	})
}

// --- nested message (un)marshalers ---

func marshalAgentHealth(m *AgentHealth) []byte {
	var b []byte
	b = appendBoolField(b, 1, m.Healthy)
	b = appendVarintField(b, 2, m.StartTimeUnixNano)
	b = appendStringField(b, 3, m.LastError)
	return b
}

func unmarshalAgentHealth(data []byte) (*AgentHealth, error) {
	m := &AgentHealth{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error) {
		switch num {
		case 1:
			b, n, err := consumeVarint(raw)
			m.Healthy = b != 0
			return n, err
		case 2:
			u, n, err := consumeVarint(raw)
			m.StartTimeUnixNano = u
			return n, err
		case 3:
			s, n, err := consumeString(raw)
			m.LastError = s
			return n, err
		default:
			return skipField(typ, raw)
		}
	})
	return m, err
}

func marshalAgentDescription(m *AgentDescription) []byte {
	var b []byte
	for _, kv := range m.IdentifyingAttributes {
		b = appendMessageField(b, 1, marshalKeyValue(kv))
	}
	for _, kv := range m.NonIdentifyingAttributes {
		b = appendMessageField(b, 2, marshalKeyValue(kv))
	}
	return b
}

func unmarshalAgentDescription(data []byte) (*AgentDescription, error) {
	m := &AgentDescription{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error) {
		switch num {
		case 1:
			msg, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			kv, err := unmarshalKeyValue(msg)
			if err == nil {
				m.IdentifyingAttributes = append(m.IdentifyingAttributes, kv)
			}
			return n, err
		case 2:
			msg, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			kv, err := unmarshalKeyValue(msg)
			if err == nil {
				m.NonIdentifyingAttributes = append(m.NonIdentifyingAttributes, kv)
			}
			return n, err
		default:
			return skipField(typ, raw)
		}
	})
	return m, err
}

func marshalKeyValue(kv *KeyValue) []byte {
	var b []byte
	b = appendStringField(b, 1, kv.Key)
	if kv.Value != nil {
		b = appendMessageField(b, 2, marshalAnyValue(kv.Value))
	}
	return b
}

func unmarshalKeyValue(data []byte) (*KeyValue, error) {
	m := &KeyValue{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error) {
		switch num {
		case 1:
			s, n, err := consumeString(raw)
			m.Key = s
			return n, err
		case 2:
			msg, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			m.Value, err = unmarshalAnyValue(msg)
			return n, err
		default:
			return skipField(typ, raw)
		}
	})
	return m, err
}

func marshalAnyValue(v *AnyValue) []byte {
	var b []byte
	switch {
	case v.HasString:
		b = appendStringField(b, 1, v.StringValue)
	case v.HasBool:
		b = appendBoolField(b, 2, v.BoolValue)
	case v.HasInt:
		b = appendVarintField(b, 3, uint64(v.IntValue))
	}
	return b
}

func unmarshalAnyValue(data []byte) (*AnyValue, error) {
	m := &AnyValue{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error) {
		switch num {
		case 1:
			s, n, err := consumeString(raw)
			m.StringValue, m.HasString = s, true
			return n, err
		case 2:
			b, n, err := consumeVarint(raw)
			m.BoolValue, m.HasBool = b != 0, true
			return n, err
		case 3:
			i, n, err := consumeVarint(raw)
			m.IntValue, m.HasInt = int64(i), true
			return n, err
		default:
			return skipField(typ, raw)
		}
	})
	return m, err
}

func marshalEffectiveConfig(m *EffectiveConfig) []byte {
	var b []byte
	if m.ConfigMap != nil {
		b = appendMessageField(b, 1, marshalAgentConfigMap(m.ConfigMap))
	}
	return b
}

func unmarshalEffectiveConfig(data []byte) (*EffectiveConfig, error) {
	m := &EffectiveConfig{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error) {
		switch num {
		case 1:
			msg, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			m.ConfigMap, err = unmarshalAgentConfigMap(msg)
			return n, err
		default:
			return skipField(typ, raw)
		}
	})
	return m, err
}

func marshalAgentConfigMap(m *AgentConfigMap) []byte {
	var b []byte
	for key, file := range m.ConfigMap {
		var entry []byte
		entry = appendStringField(entry, 1, key)
		if file != nil {
			entry = appendMessageField(entry, 2, marshalAgentConfigFile(file))
		}
		b = appendMessageField(b, 1, entry)
	}
	return b
}

func unmarshalAgentConfigMap(data []byte) (*AgentConfigMap, error) {
	m := &AgentConfigMap{ConfigMap: map[string]*AgentConfigFile{}}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error) {
		switch num {
		case 1:
			entry, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			var key string
			var file *AgentConfigFile
			err = forEachField(entry, func(num2 protowire.Number, typ2 protowire.Type, v2 []byte, raw2 []byte) (int, error) {
				switch num2 {
				case 1:
					s, n2, err2 := consumeString(raw2)
					key = s
					return n2, err2
				case 2:
					msg2, n2, err2 := consumeMessage(raw2)
					if err2 != nil {
						return n2, err2
					}
					file, err2 = unmarshalAgentConfigFile(msg2)
					return n2, err2
				default:
					return skipField(typ2, raw2)
				}
			})
			if err == nil {
				m.ConfigMap[key] = file
			}
			return n, err
		default:
			return skipField(typ, raw)
		}
	})
	return m, err
}

func marshalAgentConfigFile(m *AgentConfigFile) []byte {
	var b []byte
	b = appendBytesField(b, 1, m.Body)
	b = appendStringField(b, 2, m.ContentType)
	return b
}

func unmarshalAgentConfigFile(data []byte) (*AgentConfigFile, error) {
	m := &AgentConfigFile{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error) {
		switch num {
		case 1:
			by, n, err := consumeBytes(raw)
			m.Body = by
			return n, err
		case 2:
			s, n, err := consumeString(raw)
			m.ContentType = s
			return n, err
		default:
			return skipField(typ, raw)
		}
	})
	return m, err
}

func marshalRemoteConfigStatus(m *RemoteConfigStatus) []byte {
	var b []byte
	b = appendBytesField(b, 1, m.LastRemoteConfigHash)
	b = appendVarintField(b, 2, uint64(m.Status))
	b = appendStringField(b, 3, m.ErrorMessage)
	return b
}

func unmarshalRemoteConfigStatus(data []byte) (*RemoteConfigStatus, error) {
	m := &RemoteConfigStatus{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error) {
		switch num {
		case 1:
			by, n, err := consumeBytes(raw)
			m.LastRemoteConfigHash = by
			return n, err
		case 2:
			u, n, err := consumeVarint(raw)
			m.Status = RemoteConfigStatuses(u)
			return n, err
		case 3:
			s, n, err := consumeString(raw)
			m.ErrorMessage = s
			return n, err
		default:
			return skipField(typ, raw)
		}
	})
	return m, err
}

func marshalPackageStatuses(m *PackageStatuses) []byte {
	var b []byte
	for name, st := range m.Packages {
		var entry []byte
		entry = appendStringField(entry, 1, name)
		if st != nil {
			entry = appendMessageField(entry, 2, marshalPackageStatus(st))
		}
		b = appendMessageField(b, 1, entry)
	}
	b = appendBytesField(b, 2, m.ServerProvidedAllPackagesHash)
	b = appendStringField(b, 3, m.ErrorMessage)
	return b
}

func unmarshalPackageStatuses(data []byte) (*PackageStatuses, error) {
	m := &PackageStatuses{Packages: map[string]*PackageStatus{}}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error) {
		switch num {
		case 1:
			entry, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			var name string
			var st *PackageStatus
			err = forEachField(entry, func(num2 protowire.Number, typ2 protowire.Type, v2 []byte, raw2 []byte) (int, error) {
				switch num2 {
				case 1:
					s, n2, err2 := consumeString(raw2)
					name = s
					return n2, err2
				case 2:
					msg2, n2, err2 := consumeMessage(raw2)
					if err2 != nil {
						return n2, err2
					}
					st, err2 = unmarshalPackageStatus(msg2)
					return n2, err2
				default:
					return skipField(typ2, raw2)
				}
			})
			if err == nil {
				m.Packages[name] = st
			}
			return n, err
		case 2:
			by, n, err := consumeBytes(raw)
			m.ServerProvidedAllPackagesHash = by
			return n, err
		case 3:
			s, n, err := consumeString(raw)
			m.ErrorMessage = s
			return n, err
		default:
			return skipField(typ, raw)
		}
	})
	return m, err
}

func marshalPackageStatus(m *PackageStatus) []byte {
	var b []byte
	b = appendStringField(b, 1, m.Name)
	b = appendStringField(b, 2, m.AgentHasVersion)
	b = appendBytesField(b, 3, m.AgentHasHash)
	b = appendStringField(b, 4, m.ServerOfferedVersion)
	b = appendBytesField(b, 5, m.ServerOfferedHash)
	b = appendVarintField(b, 6, uint64(m.Status))
	b = appendStringField(b, 7, m.ErrorMessage)
	return b
}

func unmarshalPackageStatus(data []byte) (*PackageStatus, error) {
	m := &PackageStatus{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error) {
		switch num {
		case 1:
			s, n, err := consumeString(raw)
			m.Name = s
			return n, err
		case 2:
			s, n, err := consumeString(raw)
			m.AgentHasVersion = s
			return n, err
		case 3:
			by, n, err := consumeBytes(raw)
			m.AgentHasHash = by
			return n, err
		case 4:
			s, n, err := consumeString(raw)
			m.ServerOfferedVersion = s
			return n, err
		case 5:
			by, n, err := consumeBytes(raw)
			m.ServerOfferedHash = by
			return n, err
		case 6:
			u, n, err := consumeVarint(raw)
			m.Status = PackageStatusEnum(u)
			return n, err
		case 7:
			s, n, err := consumeString(raw)
			m.ErrorMessage = s
			return n, err
		default:
			return skipField(typ, raw)
		}
	})
	return m, err
}

func marshalCommand(m *ServerToAgentCommand) []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(m.Type))
	return b
}

func unmarshalCommand(data []byte) (*ServerToAgentCommand, error) {
	m := &ServerToAgentCommand{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error) {
		switch num {
		case 1:
			u, n, err := consumeVarint(raw)
			m.Type = CommandType(u)
			return n, err
		default:
			return skipField(typ, raw)
		}
	})
	return m, err
}

func marshalErrorResponse(m *ServerErrorResponse) []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(m.Type))
	b = appendStringField(b, 2, m.ErrorMessage)
	if m.HasRetryAfter {
		b = appendVarintField(b, 3, m.RetryAfterNanoseconds)
	}
	return b
}

func unmarshalErrorResponse(data []byte) (*ServerErrorResponse, error) {
	m := &ServerErrorResponse{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error) {
		switch num {
		case 1:
			u, n, err := consumeVarint(raw)
			m.Type = ServerErrorType(u)
			return n, err
		case 2:
			s, n, err := consumeString(raw)
			m.ErrorMessage = s
			return n, err
		case 3:
			u, n, err := consumeVarint(raw)
			m.RetryAfterNanoseconds, m.HasRetryAfter = u, true
			return n, err
		default:
			return skipField(typ, raw)
		}
	})
	return m, err
}

func marshalAgentRemoteConfig(m *AgentRemoteConfig) []byte {
	var b []byte
	if m.Config != nil {
		b = appendMessageField(b, 1, marshalAgentConfigMap(m.Config))
	}
	b = appendBytesField(b, 2, m.ConfigHash)
	return b
}

func unmarshalAgentRemoteConfig(data []byte) (*AgentRemoteConfig, error) {
	m := &AgentRemoteConfig{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error) {
		switch num {
		case 1:
			msg, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			m.Config, err = unmarshalAgentConfigMap(msg)
			return n, err
		case 2:
			by, n, err := consumeBytes(raw)
			m.ConfigHash = by
			return n, err
		default:
			return skipField(typ, raw)
		}
	})
	return m, err
}

func marshalConnectionSettingsOffers(m *ConnectionSettingsOffers) []byte {
	var b []byte
	if m.OwnMetrics != nil {
		b = appendMessageField(b, 1, marshalTelemetryConnectionSettings(m.OwnMetrics))
	}
	if m.OwnTraces != nil {
		b = appendMessageField(b, 2, marshalTelemetryConnectionSettings(m.OwnTraces))
	}
	if m.OwnLogs != nil {
		b = appendMessageField(b, 3, marshalTelemetryConnectionSettings(m.OwnLogs))
	}
	return b
}

func unmarshalConnectionSettingsOffers(data []byte) (*ConnectionSettingsOffers, error) {
	m := &ConnectionSettingsOffers{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error) {
		switch num {
		case 1:
			msg, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			m.OwnMetrics, err = unmarshalTelemetryConnectionSettings(msg)
			return n, err
		case 2:
			msg, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			m.OwnTraces, err = unmarshalTelemetryConnectionSettings(msg)
			return n, err
		case 3:
			msg, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			m.OwnLogs, err = unmarshalTelemetryConnectionSettings(msg)
			return n, err
		default:
			return skipField(typ, raw)
		}
	})
	return m, err
}

func marshalTelemetryConnectionSettings(m *TelemetryConnectionSettings) []byte {
	var b []byte
	b = appendStringField(b, 1, m.DestinationEndpoint)
	for k, v := range m.Headers {
		var entry []byte
		entry = appendStringField(entry, 1, k)
		entry = appendStringField(entry, 2, v)
		b = appendMessageField(b, 2, entry)
	}
	return b
}

func unmarshalTelemetryConnectionSettings(data []byte) (*TelemetryConnectionSettings, error) {
	m := &TelemetryConnectionSettings{Headers: map[string]string{}}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error) {
		switch num {
		case 1:
			s, n, err := consumeString(raw)
			m.DestinationEndpoint = s
			return n, err
		case 2:
			entry, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			var k, v string
			err = forEachField(entry, func(num2 protowire.Number, typ2 protowire.Type, v2 []byte, raw2 []byte) (int, error) {
				switch num2 {
				case 1:
					s2, n2, err2 := consumeString(raw2)
					k = s2
					return n2, err2
				case 2:
					s2, n2, err2 := consumeString(raw2)
					v = s2
					return n2, err2
				default:
					return skipField(typ2, raw2)
				}
			})
			if err == nil {
				m.Headers[k] = v
			}
			return n, err
		default:
			return skipField(typ, raw)
		}
	})
	return m, err
}

func marshalPackagesAvailable(m *PackagesAvailable) []byte {
	var b []byte
	for name, pkg := range m.Packages {
		var entry []byte
		entry = appendStringField(entry, 1, name)
		if pkg != nil {
			entry = appendMessageField(entry, 2, marshalPackageAvailable(pkg))
		}
		b = appendMessageField(b, 1, entry)
	}
	b = appendBytesField(b, 2, m.AllPackagesHash)
	return b
}

func unmarshalPackagesAvailable(data []byte) (*PackagesAvailable, error) {
	m := &PackagesAvailable{Packages: map[string]*PackageAvailable{}}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error) {
		switch num {
		case 1:
			entry, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			var name string
			var pkg *PackageAvailable
			err = forEachField(entry, func(num2 protowire.Number, typ2 protowire.Type, v2 []byte, raw2 []byte) (int, error) {
				switch num2 {
				case 1:
					s, n2, err2 := consumeString(raw2)
					name = s
					return n2, err2
				case 2:
					msg2, n2, err2 := consumeMessage(raw2)
					if err2 != nil {
						return n2, err2
					}
					pkg, err2 = unmarshalPackageAvailable(msg2)
					return n2, err2
				default:
					return skipField(typ2, raw2)
				}
			})
			if err == nil {
				m.Packages[name] = pkg
			}
			return n, err
		case 2:
			by, n, err := consumeBytes(raw)
			m.AllPackagesHash = by
			return n, err
		default:
			return skipField(typ, raw)
		}
	})
	return m, err
}

func marshalPackageAvailable(m *PackageAvailable) []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(m.Type))
	b = appendStringField(b, 2, m.Version)
	if m.File != nil {
		b = appendMessageField(b, 3, marshalDownloadableFile(m.File))
	}
	b = appendBytesField(b, 4, m.Hash)
	return b
}

func unmarshalPackageAvailable(data []byte) (*PackageAvailable, error) {
	m := &PackageAvailable{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error) {
		switch num {
		case 1:
			u, n, err := consumeVarint(raw)
			m.Type = PackageAvailableType(u)
			return n, err
		case 2:
			s, n, err := consumeString(raw)
			m.Version = s
			return n, err
		case 3:
			msg, n, err := consumeMessage(raw)
			if err != nil {
				return n, err
			}
			m.File, err = unmarshalDownloadableFile(msg)
			return n, err
		case 4:
			by, n, err := consumeBytes(raw)
			m.Hash = by
			return n, err
		default:
			return skipField(typ, raw)
		}
	})
	return m, err
}

func marshalDownloadableFile(m *DownloadableFile) []byte {
	var b []byte
	b = appendStringField(b, 1, m.DownloadURL)
	b = appendBytesField(b, 2, m.ContentHash)
	return b
}

func unmarshalDownloadableFile(data []byte) (*DownloadableFile, error) {
	m := &DownloadableFile{}
	err := forEachField(data, func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error) {
		switch num {
		case 1:
			s, n, err := consumeString(raw)
			m.DownloadURL = s
			return n, err
		case 2:
			by, n, err := consumeBytes(raw)
			m.ContentHash = by
			return n, err
		default:
			return skipField(typ, raw)
		}
	})
	return m, err
}

// --- low-level wire helpers ---

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBoolField(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

func appendMessageField(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// forEachField walks the top-level fields of a message, dispatching each to
// fn with the remaining unconsumed bytes starting at that field's value.
func forEachField(data []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, raw []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("protobufs: invalid tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		consumed, err := fn(num, typ, nil, data)
		if err != nil {
			return err
		}
		if consumed < 0 || consumed > len(data) {
			return fmt.Errorf("protobufs: field %d consumed out of range", num)
		}
		data = data[consumed:]
	}
	return nil
}

func consumeVarint(data []byte) (uint64, int, error) {
	v, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return 0, 0, fmt.Errorf("protobufs: invalid varint: %w", protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeBytes(data []byte) ([]byte, int, error) {
	v, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return nil, 0, fmt.Errorf("protobufs: invalid bytes field: %w", protowire.ParseError(n))
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, n, nil
}

func consumeString(data []byte) (string, int, error) {
	v, n, err := consumeBytes(data)
	return string(v), n, err
}

func consumeMessage(data []byte) ([]byte, int, error) {
	return consumeBytes(data)
}

func skipField(typ protowire.Type, data []byte) (int, error) {
	n := protowire.ConsumeFieldValue(0, typ, data)
	if n < 0 {
		return 0, fmt.Errorf("protobufs: failed to skip field: %w", protowire.ParseError(n))
	}
	return n, nil
}
