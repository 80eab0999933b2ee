package app

import (
	"fmt"
	"strings"

	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/crypto"
)

// cookieSecretBytes encodes to 64 URL-safe characters, well above the sealer minimum.
const cookieSecretBytes = 48

// ApplyRuntimeDefaults ensures critical secrets are populated even when no configuration file is supplied.
// It returns a map describing which keys were generated so callers can log the event without exposing values.
// A generated cookie secret lives only as long as the process, so every restart logs all users out.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Sessions.Cookie.Secret) == "" {
		secret, err := crypto.GenerateToken(cookieSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate cookie secret: %w", err)
		}
		cfg.Sessions.Cookie.Secret = secret
		generated["sessions.cookie.secret"] = true
	}

	return generated, nil
}
