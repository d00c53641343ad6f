package docker

import (
	"path/filepath"
	"strings"
)

func absOr(p, fallback string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return fallback
}

// redactBuildArgs masks values for suspicious-looking build-arg keys before
// they hit the logs.
func redactBuildArgs(args []string) []string {
	sus := func(k string) bool {
		k = strings.ToUpper(k)
		return strings.Contains(k, "PASSWORD") ||
			strings.Contains(k, "TOKEN") ||
			strings.Contains(k, "SECRET")
	}
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "--build-arg" {
			kv := out[i+1]
			if eq := strings.IndexByte(kv, '='); eq > 0 {
				if key, val := kv[:eq], kv[eq+1:]; sus(key) && val != "" {
					out[i+1] = key + "=REDACTED"
				}
			}
		}
	}
	return out
}
