// Package version carries build-time version metadata.
package version

import "strings"

// Injected via -ldflags at release build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns compact human-readable version info.
func String() string {
	parts := make([]string, 0, 3)
	if v := strings.TrimSpace(Version); v != "" {
		parts = append(parts, v)
	}
	if c := strings.TrimSpace(Commit); c != "" {
		parts = append(parts, "commit="+c)
	}
	if d := strings.TrimSpace(Date); d != "" {
		parts = append(parts, "date="+d)
	}
	return strings.Join(parts, " ")
}
