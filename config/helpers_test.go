// ABOUTME: Test helpers for config tests
// ABOUTME: Isolates tests from the farmer variables of the calling shell

package config

import (
	"maps"
	"os"
	"testing"
)

// farmerVars lists every variable Load reads.
var farmerVars = []string{
	"ACCOUNT_NAME", "PASSWORD", "GAMES", "PERSONA", "SHARED_SECRET",
	"MIN_REQUEST_INTERVAL", "LOGIN_INTERVAL", "REFRESH_INTERVAL",
	"RATE_LIMIT_COOLDOWN", "LOGIN_GRACE", "DATA_DIR",
}

// setAccountEnv sets a valid account (farmer / hunter2 playing 730 and
// 440) and unsets every other farmer variable. Values in overrides
// replace the defaults; an empty value leaves the variable unset. The
// previous environment is restored when the test ends.
func setAccountEnv(t *testing.T, overrides map[string]string) {
	t.Helper()

	values := map[string]string{
		"ACCOUNT_NAME": "farmer",
		"PASSWORD":     "hunter2",
		"GAMES":        "730,440",
	}
	maps.Copy(values, overrides)

	for _, name := range farmerVars {
		t.Setenv(name, "")
		if v := values[name]; v != "" {
			os.Setenv(name, v)
		} else {
			os.Unsetenv(name)
		}
	}
}

// shortTimings is a schedule far tighter than the defaults, as used when
// exercising the farmer against a test account.
func shortTimings() map[string]string {
	return map[string]string{
		"MIN_REQUEST_INTERVAL": "1s",
		"LOGIN_INTERVAL":       "5s",
		"REFRESH_INTERVAL":     "2s",
		"RATE_LIMIT_COOLDOWN":  "30s",
		"LOGIN_GRACE":          "100ms",
	}
}
