// ABOUTME: Classification of Steam result codes into session error kinds
// ABOUTME: Decides which results are displacement, rate limiting, transient or a code request

package steamclient

import (
	"github.com/Philipp15b/go-steam/v3/protocol/steamlang"

	"github.com/markalston/steam-hour-farmer/models"
)

type codeKind int

const (
	codeEmail codeKind = iota
	codeMobile
)

// classify maps a logon or logoff result to the controller's error kind.
func classify(result steamlang.EResult) models.ErrorKind {
	switch result {
	case steamlang.EResult_LoggedInElsewhere:
		return models.ErrorDisplaced
	case steamlang.EResult_RateLimitExceeded, steamlang.EResult_AccountLoginDeniedThrottle:
		return models.ErrorRateLimited
	default:
		return models.ErrorUnknown
	}
}

// isTransient reports results after which the client should simply
// reconnect.
func isTransient(result steamlang.EResult) bool {
	switch result {
	case steamlang.EResult_ServiceUnavailable, steamlang.EResult_TryAnotherCM, steamlang.EResult_NoConnection:
		return true
	default:
		return false
	}
}

// guardCodeKind reports whether result asks for a Steam Guard code and
// which kind.
func guardCodeKind(result steamlang.EResult) (codeKind, bool) {
	switch result {
	case steamlang.EResult_AccountLogonDenied, steamlang.EResult_InvalidLoginAuthCode:
		return codeEmail, true
	case steamlang.EResult_AccountLoginDeniedNeedTwoFactor, steamlang.EResult_TwoFactorCodeMismatch:
		return codeMobile, true
	default:
		return 0, false
	}
}
