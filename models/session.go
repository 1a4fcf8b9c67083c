// ABOUTME: Session state machine for the farming controller
// ABOUTME: SessionState, PlayingStatus and the pure transitions between them

package models

// SessionState is the authentication status of the remote session.
type SessionState int

const (
	LoggedOut SessionState = iota
	Authenticating
	Authenticated
	RateLimited
)

func (s SessionState) String() string {
	switch s {
	case LoggedOut:
		return "logged_out"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case RateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// PlayingStatus is what the account currently appears to be doing.
type PlayingStatus int

const (
	Idle PlayingStatus = iota
	Farming
	PausedByOtherSession
)

func (p PlayingStatus) String() string {
	switch p {
	case Idle:
		return "idle"
	case Farming:
		return "farming"
	case PausedByOtherSession:
		return "paused"
	default:
		return "unknown"
	}
}

// Notice returns the status line shown to the operator, or "" for Idle.
func (p PlayingStatus) Notice() string {
	switch p {
	case Farming:
		return "Farming..."
	case PausedByOtherSession:
		return "Farming is paused."
	default:
		return ""
	}
}

// Session is the controller's complete state. Values are only changed
// through the transition methods below, each of which returns the next
// state. Playing is Idle whenever State is not Authenticated.
type Session struct {
	State SessionState
	// Blocked is true while another session holds the account's
	// exclusive play rights.
	Blocked bool
	Playing PlayingStatus
}

// LoginAttempted moves to Authenticating. A RateLimited session must
// go through CooldownExpired first and is returned unchanged.
func (s Session) LoginAttempted() Session {
	if s.State == RateLimited || s.State == Authenticated {
		return s
	}
	return Session{State: Authenticating, Blocked: s.Blocked}
}

// LoggedOn moves to Authenticated. Playing stays Idle until the next
// refresh decides between Farming and PausedByOtherSession.
func (s Session) LoggedOn() Session {
	return Session{State: Authenticated, Blocked: s.Blocked, Playing: Idle}
}

// Displaced drops back to LoggedOut after another session took over.
func (s Session) Displaced() Session {
	return Session{State: LoggedOut, Blocked: s.Blocked}
}

// Disconnected drops back to LoggedOut after the connection was lost.
// A RateLimited session stays RateLimited so the cooldown is honored.
func (s Session) Disconnected() Session {
	if s.State == RateLimited {
		return Session{State: RateLimited, Blocked: s.Blocked}
	}
	return Session{State: LoggedOut, Blocked: s.Blocked}
}

// Throttled moves to RateLimited.
func (s Session) Throttled() Session {
	return Session{State: RateLimited, Blocked: s.Blocked}
}

// CooldownExpired releases a RateLimited session back to LoggedOut.
func (s Session) CooldownExpired() Session {
	if s.State != RateLimited {
		return s
	}
	return Session{State: LoggedOut, Blocked: s.Blocked}
}

// PlayingStateChanged records whether another session is playing.
func (s Session) PlayingStateChanged(blocked bool) Session {
	s.Blocked = blocked
	return s
}

// Refreshed applies the outcome of a refresh. issued reports whether
// the playing-games request was sent. Outside Authenticated it is a
// no-op.
func (s Session) Refreshed(issued bool) Session {
	if s.State != Authenticated {
		return s
	}
	switch {
	case s.Blocked:
		s.Playing = PausedByOtherSession
	case issued:
		s.Playing = Farming
	}
	return s
}
