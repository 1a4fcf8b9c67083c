// ABOUTME: Session controller keeping the account logged in and farming playtime
// ABOUTME: Schedules logins, reacts to remote events and re-asserts the playing games

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/markalston/steam-hour-farmer/clock"
	"github.com/markalston/steam-hour-farmer/models"
)

// RemoteClient is the platform session the controller drives. Events
// must stay open until the client shuts down.
type RemoteClient interface {
	LogOn(details models.LogOnDetails) error
	SetPersona(state int) error
	SetPlayingGames(games []models.Game) error
	Events() <-chan models.Event
}

// Options configures a Controller.
type Options struct {
	AccountName  string
	Password     string
	SharedSecret string // empty: prompt the operator for codes
	Persona      *int   // nil: leave the persona untouched
	Games        []models.Game

	MinRequestInterval time.Duration
	LoginInterval      time.Duration
	RefreshInterval    time.Duration
	RateLimitCooldown  time.Duration
	LoginGrace         time.Duration // delay before the first refresh after login
}

// FatalError is returned when the controller cannot continue.
type FatalError struct {
	Reason   string
	Err      error
	Notified bool // already printed through the Notifier
}

func (e *FatalError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Controller owns the session state machine. Its methods are not safe
// for concurrent use: Run serializes every timer tick, remote event and
// prompt completion onto one goroutine.
type Controller struct {
	opts     Options
	remote   RemoteClient
	prompter Prompter
	notifier *Notifier
	clock    clock.Clock

	session models.Session
	login   *Gate
	refresh *Gate

	ctx         context.Context
	prompt      *pendingPrompt
	promptDone  chan promptResult
	nextRefresh <-chan time.Time // one-shot refresh: login grace or gate expiry
}

// pendingPrompt is the suspended login flow while the operator types a
// Steam Guard code.
type pendingPrompt struct {
	respond func(code string)
}

type promptResult struct {
	code string
	err  error
}

// NewController creates a controller. Nothing is sent until Run or
// AttemptLogin is called.
func NewController(opts Options, remote RemoteClient, prompter Prompter, notifier *Notifier, clk clock.Clock) *Controller {
	return &Controller{
		opts:       opts,
		remote:     remote,
		prompter:   prompter,
		notifier:   notifier,
		clock:      clk,
		login:      NewGate(clk, opts.MinRequestInterval),
		refresh:    NewGate(clk, opts.MinRequestInterval),
		ctx:        context.Background(),
		promptDone: make(chan promptResult, 1),
	}
}

// Session returns a snapshot of the current state.
func (c *Controller) Session() models.Session { return c.session }

// Run logs in and then serves events and timers until ctx is cancelled
// or a fatal error occurs. The remote connection is left to the caller.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx

	loginTicker := c.clock.NewTicker(c.opts.LoginInterval)
	defer loginTicker.Stop()
	refreshTicker := c.clock.NewTicker(c.opts.RefreshInterval)
	defer refreshTicker.Stop()

	if err := c.AttemptLogin(); err != nil {
		return err
	}

	events := c.remote.Events()
	for {
		var err error
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return &FatalError{Reason: "remote client stopped"}
			}
			err = c.HandleEvent(ev)
		case <-loginTicker.C:
			err = c.AttemptLogin()
		case <-refreshTicker.C:
			err = c.RefreshGames()
		case <-c.nextRefresh:
			c.nextRefresh = nil
			err = c.RefreshGames()
		case r := <-c.promptDone:
			err = c.resumeLogin(r)
		}
		if err != nil {
			return err
		}
	}
}

// AttemptLogin sends a login request unless the session is already
// authenticated, a Steam Guard prompt is outstanding, or the login gate
// is closed. It is safe to call at any time.
func (c *Controller) AttemptLogin() error {
	if c.session.State == models.Authenticated {
		return nil
	}
	if c.prompt != nil {
		slog.Debug("Login skipped, waiting for Steam Guard code")
		return nil
	}
	if allowed, wait := c.login.Allow(); !allowed {
		slog.Debug("Login skipped", "state", c.session.State.String(), "retry_in", wait)
		return nil
	}

	c.session = c.session.CooldownExpired()

	details := models.LogOnDetails{
		AccountName: c.opts.AccountName,
		Password:    c.opts.Password,
	}
	if c.opts.SharedSecret != "" {
		code, err := GenerateAuthCode(c.opts.SharedSecret, c.clock.Now())
		if err != nil {
			return &FatalError{Reason: "generate Steam Guard code", Err: err}
		}
		details.TwoFactorCode = code
	}

	c.notifier.Info("Logging in...")
	c.session = c.session.LoginAttempted()
	c.login.Mark()

	if err := c.remote.LogOn(details); err != nil {
		slog.Warn("Login request failed", "error", err)
		c.session = c.session.Disconnected()
	}
	return nil
}

// RefreshGames tells the platform which games the account is playing,
// unless another session currently holds play rights or the refresh
// gate is closed. It is a no-op while not authenticated.
func (c *Controller) RefreshGames() error {
	if c.session.State != models.Authenticated {
		return nil
	}

	if c.session.Blocked {
		c.session = c.session.Refreshed(false)
		c.notifier.Status(c.session.Playing)
		return nil
	}

	if allowed, wait := c.refresh.Allow(); !allowed {
		slog.Debug("Games refresh skipped", "retry_in", wait)
		return nil
	}

	if err := c.remote.SetPlayingGames(c.opts.Games); err != nil {
		slog.Warn("Failed to set playing games", "error", err)
		return nil
	}
	c.refresh.Mark()
	c.session = c.session.Refreshed(true)
	c.notifier.Status(c.session.Playing)
	return nil
}

// HandleEvent applies one remote event. It returns a *FatalError when
// the event cannot be recovered from.
func (c *Controller) HandleEvent(ev models.Event) error {
	switch e := ev.(type) {
	case models.LoggedOnEvent:
		return c.onLoggedOn(e)
	case models.SteamGuardEvent:
		return c.onSteamGuard(e)
	case models.PlayingStateEvent:
		slog.Info("Playing state changed", "blocked", e.Blocked, "app_id", e.AppID)
		c.session = c.session.PlayingStateChanged(e.Blocked)
		c.nextRefresh = nil
		if err := c.RefreshGames(); err != nil {
			return err
		}
		c.scheduleResume()
		return nil
	case models.ErrorEvent:
		return c.onError(e)
	case models.DisconnectedEvent:
		return c.onDisconnected(e)
	default:
		slog.Warn("Ignoring unknown event", "type", fmt.Sprintf("%T", ev))
		return nil
	}
}

func (c *Controller) onLoggedOn(e models.LoggedOnEvent) error {
	c.session = c.session.LoggedOn()
	c.notifier.Info("Successfully logged in to Steam with ID %s", e.SteamID)

	if c.opts.Persona != nil {
		if err := c.remote.SetPersona(*c.opts.Persona); err != nil {
			slog.Warn("Failed to set persona", "persona", *c.opts.Persona, "error", err)
		}
	}

	// Give a playing-state event a chance to arrive before claiming the
	// account.
	if c.opts.LoginGrace > 0 {
		c.nextRefresh = c.clock.After(c.opts.LoginGrace)
		return nil
	}
	return c.RefreshGames()
}

// scheduleResume arms a one-shot refresh for when the refresh gate opens
// if the account was unblocked but the games could not be sent yet.
func (c *Controller) scheduleResume() {
	if c.session.State != models.Authenticated || c.session.Blocked || c.session.Playing == models.Farming {
		return
	}
	if allowed, wait := c.refresh.Allow(); !allowed {
		slog.Debug("Resuming farming when the refresh gate opens", "in", wait)
		c.nextRefresh = c.clock.After(wait)
	}
}

func (c *Controller) onSteamGuard(e models.SteamGuardEvent) error {
	if c.opts.SharedSecret != "" {
		code, err := GenerateAuthCode(c.opts.SharedSecret, c.clock.Now())
		if err != nil {
			return &FatalError{Reason: "generate Steam Guard code", Err: err}
		}
		e.Respond(code)
		return nil
	}

	if c.prompt != nil {
		slog.Warn("Steam Guard code already requested, ignoring repeat request")
		return nil
	}

	c.prompt = &pendingPrompt{respond: e.Respond}
	ctx, domain := c.ctx, e.Domain
	go func() {
		code, err := c.prompter.Prompt(ctx, domain)
		c.promptDone <- promptResult{code: code, err: err}
	}()
	return nil
}

// resumeLogin continues the login flow suspended by onSteamGuard.
func (c *Controller) resumeLogin(r promptResult) error {
	pending := c.prompt
	c.prompt = nil
	if pending == nil {
		return nil
	}

	if r.err != nil {
		if errors.Is(r.err, context.Canceled) {
			return r.err
		}
		return &FatalError{Reason: "Steam Guard prompt failed", Err: r.err}
	}

	c.session = c.session.LoginAttempted()
	pending.respond(r.code)
	return nil
}

func (c *Controller) onError(e models.ErrorEvent) error {
	switch e.Kind {
	case models.ErrorDisplaced:
		c.session = c.session.Displaced()
		c.nextRefresh = nil
		c.notifier.Warn("Got kicked by other Steam session. Will log in shortly...")
		return c.AttemptLogin()

	case models.ErrorRateLimited:
		c.session = c.session.Throttled()
		c.nextRefresh = nil
		until := c.login.DeferFor(c.opts.RateLimitCooldown)
		slog.Info("Login deferred", "until", until)
		c.notifier.Warn("Got rate limited by Steam. Will try logging in again in %s.", formatCooldown(c.opts.RateLimitCooldown))
		return nil

	default:
		c.notifier.Error("Got an error from Steam: %q.", e.Message)
		return &FatalError{Reason: "unrecoverable Steam error", Err: errors.New(e.Message), Notified: true}
	}
}

func (c *Controller) onDisconnected(e models.DisconnectedEvent) error {
	if c.prompt != nil {
		// The platform drops the connection after asking for a code;
		// the pending prompt resumes the login.
		slog.Debug("Disconnected while waiting for Steam Guard code")
		return nil
	}

	switch c.session.State {
	case models.Authenticated, models.Authenticating:
		slog.Warn("Disconnected from Steam", "error", e.Err)
		c.session = c.session.Disconnected()
		c.nextRefresh = nil
		c.notifier.Warn("Lost connection to Steam. Will log in shortly...")
		return c.AttemptLogin()
	default:
		return nil
	}
}

// formatCooldown renders a cooldown as whole minutes when possible.
func formatCooldown(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		minutes := int(d / time.Minute)
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	return d.String()
}
