package featureflags

import (
	"os"
	"strings"
)

// Enabled reports whether a flag is on, defaulting to def when the
// environment does not set it. Flags are read as FLAG_<NAME>=on/off
// (also true/false, 1/0, yes/no, case-insensitive).
func Enabled(name string, def bool) bool {
	switch strings.ToLower(os.Getenv("FLAG_" + strings.ToUpper(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
