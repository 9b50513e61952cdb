package types

import (
	"os"
	"strconv"

	"github.com/jessiebe/otel-opamp-go/internal/ulid"
)

// HostInfoProvider describes the local host for the agent state store's
// default non-identifying attributes. internal/hostinfo ships the default
// gopsutil-backed implementation; embedders may supply their own.
type HostInfoProvider interface {
	Describe() (osType, osVersion, hostName string)
}

// ConnectionSettings is immutable configuration for a Client. Zero-value
// fields fall back to the Default* constants below, applied by WithDefaults.
type ConnectionSettings struct {
	ServerEndpoint string
	APIKey         string
	ListenPath     string
	Name           string
	Version        string
	InstanceID     string
	LogLevel       string

	// HostInfo overrides the default host-identification provider. Nil
	// means the agent state store falls back to hostinfo.Default().
	HostInfo HostInfoProvider

	// ConnectRetries caps the exponential-backoff retry count during
	// connect. Zero means "use DefaultConnectRetries or the
	// OPAMP_CONNECT_RETRIES environment variable".
	ConnectRetries int

	// Compress enables gzip request/response compression on the HTTP
	// transport.
	Compress bool
}

const (
	DefaultServerEndpoint = "ws://127.0.0.1:4320"
	DefaultListenPath     = "/v1/opamp"
	DefaultName           = "io.opentelemetry.collector"
	DefaultVersion        = "0.0.1"
	DefaultLogLevel       = "info"
	DefaultConnectRetries = 10
)

// WithDefaults returns a copy of s with every zero-value field replaced by
// its documented default, generating a fresh instance_id if none was set.
func (s ConnectionSettings) WithDefaults() ConnectionSettings {
	out := s
	if out.ServerEndpoint == "" {
		out.ServerEndpoint = DefaultServerEndpoint
	}
	if out.ListenPath == "" {
		out.ListenPath = DefaultListenPath
	}
	if out.Name == "" {
		out.Name = DefaultName
	}
	if out.Version == "" {
		out.Version = DefaultVersion
	}
	if out.InstanceID == "" {
		out.InstanceID = ulid.New()
	}
	if out.LogLevel == "" {
		out.LogLevel = DefaultLogLevel
	}
	if out.ConnectRetries == 0 {
		out.ConnectRetries = connectRetriesFromEnv()
	}
	return out
}

func connectRetriesFromEnv() int {
	if v := os.Getenv("OPAMP_CONNECT_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultConnectRetries
}
