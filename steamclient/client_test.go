// ABOUTME: Tests for the go-steam adapter
// ABOUTME: Feeds go-steam events and packets into a Client and checks the session events it emits

package steamclient

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/Philipp15b/go-steam/v3"
	"github.com/Philipp15b/go-steam/v3/protocol"
	"github.com/Philipp15b/go-steam/v3/protocol/protobuf"
	"github.com/Philipp15b/go-steam/v3/protocol/steamlang"
	"github.com/Philipp15b/go-steam/v3/steamid"
	"google.golang.org/protobuf/proto"

	"github.com/markalston/steam-hour-farmer/models"
)

// fakeSession records the requests the adapter sends to Steam.
type fakeSession struct {
	mu       sync.Mutex
	connects int
	logOns   []steam.LogOnDetails
	personas []steamlang.EPersonaState
	writes   []protocol.IMsg
}

func (f *fakeSession) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return nil
}

func (f *fakeSession) LogOn(details *steam.LogOnDetails) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logOns = append(f.logOns, *details)
}

func (f *fakeSession) SetPersonaState(state steamlang.EPersonaState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.personas = append(f.personas, state)
}

func (f *fakeSession) Write(msg protocol.IMsg) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, msg)
}

func newTestClient(t *testing.T) (*Client, *fakeSession) {
	t.Helper()
	c := New(t.TempDir())
	fake := &fakeSession{}
	c.conn = fake
	return c, fake
}

var testLogOn = models.LogOnDetails{AccountName: "farmer", Password: "hunter2"}

// connectedClient returns a client with a live connection and a login
// already sent on it.
func connectedClient(t *testing.T) (*Client, *fakeSession) {
	t.Helper()
	c, fake := newTestClient(t)
	if err := c.LogOn(testLogOn); err != nil {
		t.Fatalf("LogOn: %v", err)
	}
	c.dispatch(&steam.ConnectedEvent{})
	return c, fake
}

func nextEvent(t *testing.T, c *Client) models.Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("expected an event")
		return nil
	}
}

func expectNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case ev := <-c.Events():
		t.Fatalf("expected no event, got %#v", ev)
	default:
	}
}

func packetFor(t *testing.T, msg *protocol.ClientMsgProtobuf) *protocol.Packet {
	t.Helper()
	var buf bytes.Buffer
	if err := msg.Serialize(&buf); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	p, err := protocol.NewPacket(buf.Bytes())
	if err != nil {
		t.Fatalf("NewPacket: %v", err)
	}
	return p
}

func logOnResponsePacket(t *testing.T, result steamlang.EResult, domain string) *protocol.Packet {
	t.Helper()
	return packetFor(t, protocol.NewClientMsgProtobuf(steamlang.EMsg_ClientLogOnResponse, &protobuf.CMsgClientLogonResponse{
		Eresult:     proto.Int32(int32(result)),
		EmailDomain: proto.String(domain),
	}))
}

func TestLogOn_ConnectsThenLogsOnWhenConnected(t *testing.T) {
	c, fake := newTestClient(t)

	if err := c.LogOn(testLogOn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.connects != 1 || len(fake.logOns) != 0 {
		t.Fatalf("expected a connect and no logon yet, got %d/%d", fake.connects, len(fake.logOns))
	}

	c.dispatch(&steam.ConnectedEvent{})

	if len(fake.logOns) != 1 {
		t.Fatalf("expected pending logon to be sent, got %d", len(fake.logOns))
	}
	if got := fake.logOns[0]; got.Username != "farmer" || got.Password != "hunter2" {
		t.Errorf("unexpected logon details %+v", got)
	}
	expectNoEvent(t, c)
}

func TestLogOn_ReusesLiveConnection(t *testing.T) {
	c, fake := connectedClient(t)

	if err := c.LogOn(testLogOn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fake.connects != 1 {
		t.Errorf("expected no second connect, got %d", fake.connects)
	}
	if len(fake.logOns) != 2 {
		t.Errorf("expected logon on the live connection, got %d", len(fake.logOns))
	}
}

func TestDispatch_LoggedOn(t *testing.T) {
	c, _ := connectedClient(t)

	c.dispatch(&steam.LoggedOnEvent{ClientSteamId: steamid.SteamId(76561197960287930)})

	ev, ok := nextEvent(t, c).(models.LoggedOnEvent)
	if !ok {
		t.Fatalf("expected LoggedOnEvent, got %#v", ev)
	}
	if ev.SteamID != "76561197960287930" {
		t.Errorf("unexpected steam id %q", ev.SteamID)
	}
}

func TestDispatch_LogOnFailed(t *testing.T) {
	tests := []struct {
		result steamlang.EResult
		kind   models.ErrorKind
	}{
		{steamlang.EResult_InvalidPassword, models.ErrorUnknown},
		{steamlang.EResult_RateLimitExceeded, models.ErrorRateLimited},
		{steamlang.EResult_AccountLoginDeniedThrottle, models.ErrorRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.result.String(), func(t *testing.T) {
			c, _ := connectedClient(t)

			c.dispatch(&steam.LogOnFailedEvent{Result: tt.result})

			ev, ok := nextEvent(t, c).(models.ErrorEvent)
			if !ok || ev.Kind != tt.kind {
				t.Errorf("expected error kind %v, got %#v", tt.kind, ev)
			}
		})
	}
}

func TestDispatch_LogOnFailedAskingForCodeIsLeftToPacket(t *testing.T) {
	c, _ := connectedClient(t)

	c.dispatch(&steam.LogOnFailedEvent{Result: steamlang.EResult_AccountLogonDenied})

	expectNoEvent(t, c)
}

func TestDispatch_KickedReconnectsOnNextLogOn(t *testing.T) {
	c, fake := connectedClient(t)
	c.dispatch(&steam.LoggedOnEvent{})
	nextEvent(t, c)

	c.dispatch(&steam.LoggedOffEvent{Result: steamlang.EResult_LoggedInElsewhere})

	ev, ok := nextEvent(t, c).(models.ErrorEvent)
	if !ok || ev.Kind != models.ErrorDisplaced {
		t.Fatalf("expected displaced error, got %#v", ev)
	}

	// The controller logs in again right away.
	if err := c.LogOn(testLogOn); err != nil {
		t.Fatalf("LogOn: %v", err)
	}
	if fake.connects != 2 {
		t.Errorf("expected a reconnect, got %d connects", fake.connects)
	}
	if len(fake.logOns) != 1 {
		t.Errorf("expected nothing written to the closing connection, got %d logons", len(fake.logOns))
	}

	// The old connection closing is not a new disconnect.
	c.dispatch(&steam.DisconnectedEvent{})
	expectNoEvent(t, c)

	c.dispatch(&steam.ConnectedEvent{})
	if len(fake.logOns) != 2 {
		t.Errorf("expected logon on the new connection, got %d", len(fake.logOns))
	}
}

func TestDispatch_TransientLogOffIsDisconnect(t *testing.T) {
	c, _ := connectedClient(t)

	c.dispatch(&steam.LoggedOffEvent{Result: steamlang.EResult_TryAnotherCM})

	ev, ok := nextEvent(t, c).(models.DisconnectedEvent)
	if !ok || ev.Err == nil {
		t.Fatalf("expected disconnect with cause, got %#v", ev)
	}

	c.dispatch(&steam.DisconnectedEvent{})
	expectNoEvent(t, c)
}

func TestDispatch_DisconnectCarriesFatalError(t *testing.T) {
	c, _ := connectedClient(t)

	c.dispatch(steam.FatalErrorEvent(errNotConnected))
	expectNoEvent(t, c)
	c.dispatch(&steam.DisconnectedEvent{})

	ev, ok := nextEvent(t, c).(models.DisconnectedEvent)
	if !ok || ev.Err != errNotConnected {
		t.Fatalf("expected disconnect carrying the fatal error, got %#v", ev)
	}
}

func TestHandlePacket_PlayingSessionState(t *testing.T) {
	c, _ := newTestClient(t)

	c.HandlePacket(packetFor(t, protocol.NewClientMsgProtobuf(eMsgClientPlayingSessionState, &protobuf.CMsgClientPlayingSessionState{
		PlayingBlocked: proto.Bool(true),
		PlayingApp:     proto.Uint32(440),
	})))

	ev, ok := nextEvent(t, c).(models.PlayingStateEvent)
	if !ok {
		t.Fatalf("expected PlayingStateEvent, got %#v", ev)
	}
	if !ev.Blocked || ev.AppID != 440 {
		t.Errorf("expected blocked on 440, got %+v", ev)
	}
}

func TestHandlePacket_EmailCodeRetriesWithAuthCode(t *testing.T) {
	c, fake := connectedClient(t)

	c.HandlePacket(logOnResponsePacket(t, steamlang.EResult_AccountLogonDenied, "example.com"))

	ev, ok := nextEvent(t, c).(models.SteamGuardEvent)
	if !ok {
		t.Fatalf("expected SteamGuardEvent, got %#v", ev)
	}
	if ev.Domain != "example.com" {
		t.Errorf("expected domain example.com, got %q", ev.Domain)
	}

	// Steam drops the connection while the operator types the code.
	c.dispatch(&steam.DisconnectedEvent{})
	expectNoEvent(t, c)

	ev.Respond("F4K3C")
	if fake.connects != 2 {
		t.Fatalf("expected reconnect for the retry, got %d connects", fake.connects)
	}
	c.dispatch(&steam.ConnectedEvent{})

	retry := fake.logOns[len(fake.logOns)-1]
	if retry.AuthCode != "F4K3C" || retry.TwoFactorCode != "" {
		t.Errorf("expected email code in AuthCode, got %+v", retry)
	}
}

func TestHandlePacket_MobileCodeRetriesWithTwoFactorCode(t *testing.T) {
	c, fake := connectedClient(t)

	c.HandlePacket(logOnResponsePacket(t, steamlang.EResult_AccountLoginDeniedNeedTwoFactor, ""))

	ev, ok := nextEvent(t, c).(models.SteamGuardEvent)
	if !ok {
		t.Fatalf("expected SteamGuardEvent, got %#v", ev)
	}
	ev.Respond("M0B1L")

	if len(fake.logOns) != 2 {
		t.Fatalf("expected retry on the live connection, got %d", len(fake.logOns))
	}
	if retry := fake.logOns[1]; retry.TwoFactorCode != "M0B1L" || retry.AuthCode != "" {
		t.Errorf("expected mobile code in TwoFactorCode, got %+v", retry)
	}
}

func TestHandlePacket_OtherLogOnResultsIgnored(t *testing.T) {
	c, _ := connectedClient(t)

	c.HandlePacket(logOnResponsePacket(t, steamlang.EResult_OK, ""))

	expectNoEvent(t, c)
}

func TestSetPlayingGames(t *testing.T) {
	c, fake := newTestClient(t)
	games := []models.Game{{AppID: 730}}

	if err := c.SetPlayingGames(games); err != errNotConnected {
		t.Errorf("expected errNotConnected before connecting, got %v", err)
	}

	c.dispatch(&steam.ConnectedEvent{})
	if err := c.SetPlayingGames(games); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.writes) != 1 || fake.writes[0].GetMsgType() != steamlang.EMsg_ClientGamesPlayed {
		t.Errorf("expected one games played message, got %v", fake.writes)
	}
}

func TestSetPersona(t *testing.T) {
	c, fake := connectedClient(t)

	if err := c.SetPersona(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.personas) != 1 || fake.personas[0] != steamlang.EPersonaState_Online {
		t.Errorf("expected online persona, got %v", fake.personas)
	}
}

func TestMachineAuthIsReusedOnNextLogOn(t *testing.T) {
	c, fake := connectedClient(t)
	hash := []byte{0xde, 0xad, 0xbe, 0xef}

	c.dispatch(&steam.MachineAuthUpdateEvent{Hash: hash})

	if err := c.LogOn(testLogOn); err != nil {
		t.Fatalf("LogOn: %v", err)
	}
	got := fake.logOns[len(fake.logOns)-1].SentryFileHash
	if !bytes.Equal(got, hash) {
		t.Errorf("expected saved sentry hash, got %x", got)
	}
}
