package wstransport

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/jessiebe/otel-opamp-go/internal/agentstate"
	"github.com/jessiebe/otel-opamp-go/internal/dispatch"
	"github.com/jessiebe/otel-opamp-go/internal/protobufs"
	"github.com/jessiebe/otel-opamp-go/transport"
	"github.com/jessiebe/otel-opamp-go/types"
)

type fakeCallbacks struct{}

func (fakeCallbacks) GetConfiguration() (*protobufs.AgentConfigMap, error) { return nil, nil }
func (fakeCallbacks) GetFeatures() (uint64, uint64)                        { return 4, 0 }
func (fakeCallbacks) OnLoop() (*protobufs.AgentToServer, error)            { return nil, nil }
func (fakeCallbacks) OnError(*protobufs.ServerErrorResponse)               {}
func (fakeCallbacks) OnHealthCheck(*protobufs.ServerToAgent) (*protobufs.AgentToServer, error) {
	return nil, nil
}
func (fakeCallbacks) OnCommand(*protobufs.ServerToAgentCommand) (*protobufs.AgentToServer, error) {
	return nil, nil
}
func (fakeCallbacks) OnAgentRemoteConfig(*protobufs.AgentRemoteConfig) (*protobufs.AgentToServer, error) {
	return nil, nil
}
func (fakeCallbacks) OnConnectionSettingsOffers(*protobufs.TelemetryConnectionSettings) (*protobufs.AgentToServer, error) {
	return nil, nil
}
func (fakeCallbacks) OnPackagesAvailable(*protobufs.PackagesAvailable) (*protobufs.AgentToServer, error) {
	return nil, nil
}

// newEchoServer upgrades every connection and hands the test the server-side
// *websocket.Conn over the returned channel.
func newEchoServer(t *testing.T) (*httptest.Server, chan *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		conns <- conn
	}))
	return srv, conns
}

func newTestTransport(t *testing.T, wsURL string) *Transport {
	t.Helper()
	u, err := url.Parse(wsURL)
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}
	settings := types.ConnectionSettings{InstanceID: "agent-1"}.WithDefaults()
	store := agentstate.New(settings, fakeCallbacks{})
	d := dispatch.New(store, fakeCallbacks{}, nil)
	return New(u, settings, store, d, nil)
}

func TestConnectAndHandshake(t *testing.T) {
	srv, conns := newEchoServer(t)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	tr := newTestTransport(t, wsURL)
	resp, err := tr.Connect(t.Context())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if resp.Kind != transport.Reply {
		t.Fatalf("Connect kind = %v, want Reply", resp.Kind)
	}
	<-conns // drain the server-side accept

	resp, err = tr.Handshake(t.Context())
	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if resp.Kind != transport.Reply {
		t.Errorf("Handshake kind = %v, want Reply", resp.Kind)
	}
	if len(tr.outbox) != 1 {
		t.Fatalf("expected 1 enqueued message, got %d", len(tr.outbox))
	}
}

func TestSendWritesBinaryFrameWithHeaderByte(t *testing.T) {
	srv, conns := newEchoServer(t)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	tr := newTestTransport(t, wsURL)
	if _, err := tr.Connect(t.Context()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	serverConn := <-conns

	tr.outbox = []*protobufs.AgentToServer{{}}
	if _, err := tr.Send(t.Context()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	kind, data, err := serverConn.ReadMessage()
	if err != nil {
		t.Fatalf("server ReadMessage: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Errorf("frame kind = %d, want BinaryMessage", kind)
	}
	if len(data) < 1 || data[0] != headerByte {
		t.Errorf("frame missing expected header byte: %v", data)
	}
}

func TestReadOneDecodesInboundFrame(t *testing.T) {
	srv, conns := newEchoServer(t)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	tr := newTestTransport(t, wsURL)
	if _, err := tr.Connect(t.Context()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	serverConn := <-conns

	msg := &protobufs.ServerToAgent{InstanceUID: "agent-1"}
	payload, err := msg.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := serverConn.WriteMessage(websocket.BinaryMessage, append([]byte{headerByte}, payload...)); err != nil {
		t.Fatalf("server WriteMessage: %v", err)
	}

	decoded, err := tr.readOne()
	if err != nil {
		t.Fatalf("readOne: %v", err)
	}
	if decoded == nil || decoded.InstanceUID != "agent-1" {
		t.Errorf("decoded = %+v, want InstanceUID agent-1", decoded)
	}
}
