package instance

import "github.com/angelmondragon/branchpos-backend/pkg/env"

// GetID identifies this process in logs. Platform-provided ids win over the
// local fallback.
func GetID() string {
	if id := env.Get("BRANCHPOS_INSTANCE_ID", ""); id != "" {
		return id
	}
	return env.Get("DYNO", "local")
}
