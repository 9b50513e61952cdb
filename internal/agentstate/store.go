// Package agentstate is the in-memory mirror of the most recent
// AgentToServer payload, owned exclusively by one transport instance. It is
// lazily built on first GetStatus from the embedder's Callbacks, then
// mutated only through SetHealth and the health start-time refresh that
// every GetStatus performs — never partially, per the store's "None or fully
// populated" invariant.
package agentstate

import (
	"fmt"
	"sync"
	"time"

	"github.com/jessiebe/otel-opamp-go/internal/protobufs"
	"github.com/jessiebe/otel-opamp-go/types"
)

// Store is safe for use by a single owning transport; spec.md's concurrency
// model gives it exactly one owner, so the mutex here exists only to make a
// single guarded cell explicit, not to support concurrent access.
type Store struct {
	mu sync.Mutex

	settings  types.ConnectionSettings
	callbacks types.Callbacks

	message *protobufs.AgentToServer
}

// New constructs an empty Store. The first GetStatus call performs lazy
// initialization.
func New(settings types.ConnectionSettings, callbacks types.Callbacks) *Store {
	return &Store{settings: settings, callbacks: callbacks}
}

// GetStatus returns a Clone of the current AgentToServer (its own Health
// and RemoteConfigStatus; the other nested fields are shared), initializing
// it on first call by consulting GetConfiguration/GetFeatures. Health's
// start time is refreshed to the current wall clock on every read —
// heartbeat semantics, per spec.
func (s *Store) GetStatus() (*protobufs.AgentToServer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.message == nil {
		configMap, err := s.callbacks.GetConfiguration()
		if err != nil {
			return nil, fmt.Errorf("agentstate: get_configuration: %w", err)
		}
		capabilities, flags := s.callbacks.GetFeatures()
		s.message = buildDefault(s.settings, capabilities, flags, configMap)
	}

	s.message.Health.StartTimeUnixNano = uint64(time.Now().UnixNano())
	return s.message.Clone(), nil
}

// SetHealth overwrites the health field in place, initializing the store
// first if necessary.
func (s *Store) SetHealth(healthy bool) error {
	if _, err := s.GetStatus(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message.Health.Healthy = healthy
	s.message.Health.StartTimeUnixNano = uint64(time.Now().UnixNano())
	return nil
}

// InstanceID returns the instance_uid this store was constructed with, for
// matching against a ReportFullState request's addressed instance_uid.
func (s *Store) InstanceID() string {
	return s.settings.InstanceID
}

// Healthy reports the store's current health flag without mutating it.
func (s *Store) Healthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message != nil && s.message.Health.Healthy
}
