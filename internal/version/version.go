package version

import "strings"

// Version is stamped via ldflags on release builds.
var Version = "unknown"

var FullVersion = mergeVersionComponents()

func mergeVersionComponents() string {
	components := []string{Version}

	return strings.Join(components, "-")
}
