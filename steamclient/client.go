// ABOUTME: go-steam adapter implementing the controller's remote session client
// ABOUTME: Translates Steam callbacks into session events and sends login, persona and games requests

package steamclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/Philipp15b/go-steam/v3"
	"github.com/Philipp15b/go-steam/v3/protocol"
	"github.com/Philipp15b/go-steam/v3/protocol/steamlang"

	"github.com/markalston/steam-hour-farmer/models"
)

var errNotConnected = errors.New("not connected to Steam")

// session is the part of the go-steam client that sends requests.
type session interface {
	Connect() error
	LogOn(details *steam.LogOnDetails)
	SetPersonaState(state steamlang.EPersonaState)
	Write(msg protocol.IMsg)
}

type steamSession struct {
	client *steam.Client
}

func (s steamSession) Connect() error {
	_, err := s.client.Connect()
	return err
}

func (s steamSession) LogOn(details *steam.LogOnDetails) { s.client.Auth.LogOn(details) }

func (s steamSession) SetPersonaState(state steamlang.EPersonaState) {
	s.client.Social.SetPersonaState(state)
}

func (s steamSession) Write(msg protocol.IMsg) { s.client.Write(msg) }

// Client wraps a go-steam client. LogOn, SetPersona and SetPlayingGames
// are called from the controller; Run pumps Steam callbacks into Events.
type Client struct {
	steam   *steam.Client
	conn    session
	dataDir string
	events  chan models.Event
	done    chan struct{}

	mu           sync.Mutex
	connected    bool
	account      string
	pending      *steam.LogOnDetails // sent once the connection is up
	awaitingCode bool
	lastErr      error // reported with the next disconnect
}

// New creates a client that keeps machine auth files in dataDir.
func New(dataDir string) *Client {
	sc := steam.NewClient()
	c := &Client{
		steam:   sc,
		conn:    steamSession{client: sc},
		dataDir: dataDir,
		events:  make(chan models.Event, 16),
		done:    make(chan struct{}),
	}
	sc.RegisterPacketHandler(c)
	return c
}

// Events returns the session events. The channel is never closed.
func (c *Client) Events() <-chan models.Event { return c.events }

// Run translates Steam callbacks until ctx is cancelled, then drops the
// connection.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.done)
	defer c.steam.Disconnect()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-c.steam.Events():
			c.dispatch(ev)
		}
	}
}

// LogOn starts a login. Without a live connection it connects first and
// logs on once Steam confirms the connection.
func (c *Client) LogOn(details models.LogOnDetails) error {
	logOn := &steam.LogOnDetails{
		Username:      details.AccountName,
		Password:      details.Password,
		TwoFactorCode: details.TwoFactorCode,
	}
	if hash, err := c.loadSentry(details.AccountName); err == nil {
		logOn.SentryFileHash = steam.SentryHash(hash)
	} else if !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to read machine auth file", "error", err)
	}

	c.mu.Lock()
	c.account = details.AccountName
	c.pending = logOn
	c.awaitingCode = false
	connected := c.connected
	c.mu.Unlock()

	return c.send(logOn, connected)
}

// SetPersona publishes the persona state.
func (c *Client) SetPersona(state int) error {
	if !c.isConnected() {
		return errNotConnected
	}
	c.conn.SetPersonaState(steamlang.EPersonaState(state))
	return nil
}

// SetPlayingGames replaces the set of games the account is playing.
func (c *Client) SetPlayingGames(games []models.Game) error {
	if !c.isConnected() {
		return errNotConnected
	}
	c.conn.Write(gamesPlayedMsg(games))
	return nil
}

// HandlePacket implements steam.PacketHandler for the messages go-steam
// does not turn into events.
func (c *Client) HandlePacket(p *protocol.Packet) {
	if !p.IsProto {
		return
	}

	switch p.EMsg {
	case eMsgClientPlayingSessionState:
		c.emit(readPlayingSessionState(p))

	case steamlang.EMsg_ClientLogOnResponse:
		result, domain := readLogOnResponse(p)
		kind, ok := guardCodeKind(result)
		if !ok {
			return
		}
		c.mu.Lock()
		c.awaitingCode = true
		c.mu.Unlock()
		c.emit(models.SteamGuardEvent{
			Domain:  domain,
			Respond: c.guardResponder(kind),
		})
	}
}

func (c *Client) dispatch(ev interface{}) {
	switch e := ev.(type) {
	case *steam.ConnectedEvent:
		c.mu.Lock()
		c.connected = true
		c.lastErr = nil
		pending := c.pending
		c.mu.Unlock()
		if pending != nil {
			c.conn.LogOn(pending)
		}

	case *steam.LoggedOnEvent:
		c.mu.Lock()
		c.pending = nil
		c.mu.Unlock()
		c.emit(models.LoggedOnEvent{SteamID: strconv.FormatUint(uint64(e.ClientSteamId), 10)})

	case *steam.LogOnFailedEvent:
		if _, ok := guardCodeKind(e.Result); ok {
			// Reported through HandlePacket with the email domain.
			return
		}
		c.emitResult(e.Result)

	case *steam.LoggedOffEvent:
		c.emitResult(e.Result)

	case *steam.MachineAuthUpdateEvent:
		if err := c.saveSentry(e.Hash); err != nil {
			slog.Warn("Failed to save machine auth file", "error", err)
		}

	case *steam.DisconnectedEvent:
		c.disconnected()

	case steam.FatalErrorEvent:
		// go-steam disconnects right after a fatal error.
		slog.Warn("Steam connection error", "error", e)
		c.mu.Lock()
		c.lastErr = e
		c.mu.Unlock()

	default:
		slog.Debug("Unhandled Steam event", "type", fmt.Sprintf("%T", ev))
	}
}

// emitResult reports a failed or ended login. Steam closes the
// connection after either, so the connection is dropped here and the
// next LogOn reconnects instead of writing to a closing socket.
func (c *Client) emitResult(result steamlang.EResult) {
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	c.mu.Unlock()

	if isTransient(result) {
		if wasConnected {
			c.emit(models.DisconnectedEvent{Err: fmt.Errorf("logged off: %s", result)})
		}
		return
	}
	c.emit(models.ErrorEvent{Kind: classify(result), Message: result.String()})
}

// disconnected reports the loss of a connection the controller still
// thinks is usable. Connections already given up by emitResult, and the
// drop Steam makes after asking for a code, are not reported.
func (c *Client) disconnected() {
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	waiting := c.awaitingCode
	err := c.lastErr
	c.lastErr = nil
	c.mu.Unlock()

	if waiting || !wasConnected {
		return
	}
	c.emit(models.DisconnectedEvent{Err: err})
}

// guardResponder returns a function that retries the pending login with
// the operator's code.
func (c *Client) guardResponder(kind codeKind) func(string) {
	return func(code string) {
		c.mu.Lock()
		if c.pending == nil {
			c.mu.Unlock()
			return
		}
		retry := *c.pending
		if kind == codeEmail {
			retry.AuthCode = code
			retry.TwoFactorCode = ""
		} else {
			retry.TwoFactorCode = code
		}
		c.pending = &retry
		c.awaitingCode = false
		connected := c.connected
		c.mu.Unlock()

		if err := c.send(&retry, connected); err != nil {
			c.emit(models.DisconnectedEvent{Err: err})
		}
	}
}

func (c *Client) send(logOn *steam.LogOnDetails, connected bool) error {
	if connected {
		c.conn.LogOn(logOn)
		return nil
	}
	if err := c.conn.Connect(); err != nil {
		return fmt.Errorf("connect to Steam: %w", err)
	}
	return nil
}

func (c *Client) emit(ev models.Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Client) isConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) sentryPath(account string) string {
	return filepath.Join(c.dataDir, "sentry."+strings.ToLower(account)+".bin")
}

func (c *Client) loadSentry(account string) ([]byte, error) {
	return os.ReadFile(c.sentryPath(account))
}

func (c *Client) saveSentry(hash []byte) error {
	c.mu.Lock()
	account := c.account
	c.mu.Unlock()

	if err := os.MkdirAll(c.dataDir, 0o700); err != nil {
		return err
	}
	slog.Debug("Saving machine auth file", "account", account)
	return os.WriteFile(c.sentryPath(account), hash, 0o600)
}
