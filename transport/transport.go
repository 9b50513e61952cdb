// Package transport defines the abstract contract a wire protocol
// implementation must satisfy to drive the client FSM. internal/httptransport
// and internal/wstransport are the two realizations shipped with this
// module; it is exported so an embedder can add a third (e.g. MQTT) without
// forking the FSM.
package transport

import "context"

// Kind is the disposition of a transport operation.
type Kind int

const (
	// None means the operation completed with nothing to report — e.g. poll
	// found nothing to send and nothing arrived. The FSM table decides per
	// state whether None stays put or moves on.
	None Kind = iota
	// Reply means the operation completed and carries a log token for the
	// next state.
	Reply
	// Error means a recoverable transport-level failure occurred; the FSM
	// degrades state rather than aborting.
	Error
)

// Response is returned by every Transport operation.
type Response struct {
	Kind  Kind
	Token string
}

// ReplyResponse builds a Reply response carrying token.
func ReplyResponse(token string) Response { return Response{Kind: Reply, Token: token} }

// ErrorResponse builds an Error response carrying token.
func ErrorResponse(token string) Response { return Response{Kind: Error, Token: token} }

// NoneResponse is the zero-progress response.
func NoneResponse() Response { return Response{Kind: None} }

// Transport is the five-operation contract the FSM drives. Every operation
// may block on network I/O; callers pass ctx to bound that wait. A non-nil
// error represents an Exception per the FSM transition table — an
// unexpected hard failure distinct from a Response{Kind: Error} soft
// failure reported through the return value.
type Transport interface {
	Connect(ctx context.Context) (Response, error)
	Handshake(ctx context.Context) (Response, error)
	Poll(ctx context.Context) (Response, error)
	Send(ctx context.Context) (Response, error)
	Wait(ctx context.Context) (Response, error)

	// Identity returns a short string identifying this transport instance,
	// for logging.
	Identity() string
}
