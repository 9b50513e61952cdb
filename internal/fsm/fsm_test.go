package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/jessiebe/otel-opamp-go/transport"
)

// stubTransport returns a canned transport.Response/error pair for whichever
// operation the test wants to exercise; the others are never called.
type stubTransport struct {
	connect, handshake, poll, send, wait func(context.Context) (transport.Response, error)
}

func (s stubTransport) Connect(ctx context.Context) (transport.Response, error) {
	return s.connect(ctx)
}
func (s stubTransport) Handshake(ctx context.Context) (transport.Response, error) {
	return s.handshake(ctx)
}
func (s stubTransport) Poll(ctx context.Context) (transport.Response, error) { return s.poll(ctx) }
func (s stubTransport) Send(ctx context.Context) (transport.Response, error) { return s.send(ctx) }
func (s stubTransport) Wait(ctx context.Context) (transport.Response, error) { return s.wait(ctx) }
func (s stubTransport) Identity() string                                    { return "stub" }

func noCall(context.Context) (transport.Response, error) {
	panic("unexpected transport call")
}

func TestDisconnectedAlwaysGoesToConnecting(t *testing.T) {
	next := Evaluate(context.Background(), State{Name: Disconnected}, stubTransport{
		connect: noCall, handshake: noCall, poll: noCall, send: noCall, wait: noCall,
	})
	if next.Name != Connecting {
		t.Fatalf("Disconnected -> %s, want connecting", next.Name)
	}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		name    string
		from    Name
		resp    transport.Response
		err     error
		want    Name
	}{
		{"connecting reply", Connecting, transport.ReplyResponse("ok"), nil, Connected},
		{"connecting none", Connecting, transport.NoneResponse(), nil, Connected},
		{"connecting error", Connecting, transport.ErrorResponse("boom"), nil, Disconnected},
		{"connecting exception", Connecting, transport.Response{}, errors.New("boom"), Disconnected},

		{"connected reply", Connected, transport.ReplyResponse("ok"), nil, Sending},
		{"connected none", Connected, transport.NoneResponse(), nil, Polling},
		{"connected error", Connected, transport.ErrorResponse("boom"), nil, Disconnected},
		{"connected exception", Connected, transport.Response{}, errors.New("boom"), Disconnected},

		{"polling reply", Polling, transport.ReplyResponse("ok"), nil, Sending},
		{"polling none", Polling, transport.NoneResponse(), nil, Polling},
		{"polling error", Polling, transport.ErrorResponse("boom"), nil, Disconnected},
		{"polling exception", Polling, transport.Response{}, errors.New("boom"), Connecting},

		{"sending reply", Sending, transport.ReplyResponse("ok"), nil, Waiting},
		{"sending none", Sending, transport.NoneResponse(), nil, Polling},
		{"sending error", Sending, transport.ErrorResponse("boom"), nil, Polling},
		{"sending exception", Sending, transport.Response{}, errors.New("boom"), Connecting},

		{"waiting reply", Waiting, transport.ReplyResponse("ok"), nil, Polling},
		{"waiting none", Waiting, transport.NoneResponse(), nil, Waiting},
		{"waiting error", Waiting, transport.ErrorResponse("boom"), nil, Polling},
		{"waiting exception", Waiting, transport.Response{}, errors.New("boom"), Connecting},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			op := func(context.Context) (transport.Response, error) { return tc.resp, tc.err }
			st := stubTransport{connect: noCall, handshake: noCall, poll: noCall, send: noCall, wait: noCall}
			switch tc.from {
			case Connecting:
				st.connect = op
			case Connected:
				st.handshake = op
			case Polling:
				st.poll = op
			case Sending:
				st.send = op
			case Waiting:
				st.wait = op
			}
			next := Evaluate(context.Background(), State{Name: tc.from}, st)
			if next.Name != tc.want {
				t.Errorf("%s -> %s, want %s", tc.from, next.Name, tc.want)
			}
		})
	}
}
