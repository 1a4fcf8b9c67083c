// ABOUTME: Events emitted by the remote session client
// ABOUTME: Consumed one at a time by the controller's event loop

package models

// ErrorKind classifies a remote error.
type ErrorKind int

const (
	// ErrorUnknown is any error the controller does not recognize; it is
	// always fatal.
	ErrorUnknown ErrorKind = iota
	// ErrorDisplaced means another login took this account's session.
	ErrorDisplaced
	// ErrorRateLimited means the platform is refusing logins for a while.
	ErrorRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorDisplaced:
		return "displaced"
	case ErrorRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Event is implemented by every event the remote client emits.
type Event interface {
	event()
}

// LoggedOnEvent reports a successful login.
type LoggedOnEvent struct {
	SteamID string
}

// SteamGuardEvent asks for a two-factor code. Domain is the email domain
// hint and may be empty. Respond must be called at most once.
type SteamGuardEvent struct {
	Domain  string
	Respond func(code string)
}

// PlayingStateEvent reports whether another session is playing on the
// account. AppID is the game that session is playing, if known.
type PlayingStateEvent struct {
	Blocked bool
	AppID   uint32
}

// ErrorEvent reports a remote error.
type ErrorEvent struct {
	Kind    ErrorKind
	Message string
}

// DisconnectedEvent reports that the connection to the platform dropped.
type DisconnectedEvent struct {
	Err error
}

func (LoggedOnEvent) event()     {}
func (SteamGuardEvent) event()   {}
func (PlayingStateEvent) event() {}
func (ErrorEvent) event()        {}
func (DisconnectedEvent) event() {}

// LogOnDetails are the credentials sent with a login request.
type LogOnDetails struct {
	AccountName   string
	Password      string
	TwoFactorCode string
}
