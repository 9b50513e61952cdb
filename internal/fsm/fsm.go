// Package fsm implements the client's six-state connection machine as a pure,
// single-stepped transition function. Each call to Evaluate drives exactly
// one transition by invoking the one transport operation the current state
// names, and maps its transport.Response (or error) onto the next State per
// the table in the component design: Reply/None/Error/Exception each route
// differently depending on which state they occurred in.
package fsm

import (
	"context"
	"fmt"

	"github.com/jessiebe/otel-opamp-go/transport"
)

// Name enumerates the six FSM states.
type Name int

const (
	Disconnected Name = iota
	Connecting
	Connected
	Polling
	Sending
	Waiting
)

func (n Name) String() string {
	switch n {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Polling:
		return "polling"
	case Sending:
		return "sending"
	case Waiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// State is a named state plus the log token carried into it by the Reply
// that produced it.
type State struct {
	Name  Name
	Token string
}

// Evaluate advances current by exactly one transition, invoking the single
// transport operation current.Name names (or none, for Disconnected) and
// folding the result into the next State. A non-nil error from the
// transport operation is treated as the FSM table's "Exception" column; it
// is never returned to the caller — Evaluate itself never fails, since a
// failing transport operation is exactly what drives a degrade-and-retry
// transition rather than aborting.
func Evaluate(ctx context.Context, current State, t transport.Transport) State {
	switch current.Name {
	case Disconnected:
		// Unconditional, non-I/O: bootstraps every reconnect.
		return State{Name: Connecting}

	case Connecting:
		resp, err := t.Connect(ctx)
		if err != nil {
			return State{Name: Disconnected, Token: errToken("connect", err)}
		}
		switch resp.Kind {
		case transport.Reply, transport.None:
			return State{Name: Connected, Token: resp.Token}
		case transport.Error:
			return State{Name: Disconnected, Token: resp.Token}
		}

	case Connected:
		resp, err := t.Handshake(ctx)
		if err != nil {
			return State{Name: Disconnected, Token: errToken("handshake", err)}
		}
		switch resp.Kind {
		case transport.Reply:
			return State{Name: Sending, Token: resp.Token}
		case transport.None:
			return State{Name: Polling, Token: resp.Token}
		case transport.Error:
			return State{Name: Disconnected, Token: resp.Token}
		}

	case Polling:
		resp, err := t.Poll(ctx)
		if err != nil {
			return State{Name: Connecting, Token: errToken("poll", err)}
		}
		switch resp.Kind {
		case transport.Reply:
			return State{Name: Sending, Token: resp.Token}
		case transport.None:
			return State{Name: Polling, Token: resp.Token}
		case transport.Error:
			return State{Name: Disconnected, Token: resp.Token}
		}

	case Sending:
		resp, err := t.Send(ctx)
		if err != nil {
			return State{Name: Connecting, Token: errToken("send", err)}
		}
		switch resp.Kind {
		case transport.Reply:
			return State{Name: Waiting, Token: resp.Token}
		case transport.None:
			return State{Name: Polling, Token: resp.Token}
		case transport.Error:
			return State{Name: Polling, Token: resp.Token}
		}

	case Waiting:
		resp, err := t.Wait(ctx)
		if err != nil {
			return State{Name: Connecting, Token: errToken("wait", err)}
		}
		switch resp.Kind {
		case transport.Reply:
			return State{Name: Polling, Token: resp.Token}
		case transport.None:
			return State{Name: Waiting, Token: resp.Token}
		case transport.Error:
			return State{Name: Polling, Token: resp.Token}
		}
	}

	// Unreachable for any well-formed State; fall back to a reconnect
	// rather than getting stuck.
	return State{Name: Disconnected, Token: "fsm: unhandled state"}
}

func errToken(op string, err error) string {
	return fmt.Sprintf("%s: %v", op, err)
}
