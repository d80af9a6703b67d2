package driver

import (
	"fmt"
	"regexp"

	"github.com/vk/mzngo/mznerr"
	"golang.org/x/mod/semver"
)

const (
	// MinVersion is the oldest driver this module can talk to.
	MinVersion = "v2.5.0"
	// JSONStreamVersion is the first driver release with --json-stream.
	JSONStreamVersion = "v2.6.0"
)

var versionPattern = regexp.MustCompile(`version (\d+)\.(\d+)\.(\d+)`)

// ParseVersion extracts the semantic version from the driver's --version
// text, returned in canonical "vMAJOR.MINOR.PATCH" form.
func ParseVersion(text string) (string, error) {
	m := versionPattern.FindStringSubmatch(text)
	if m == nil {
		return "", mznerr.Configurationf("unable to find a version number in %q", text)
	}
	v := semver.Canonical(fmt.Sprintf("v%s.%s.%s", m[1], m[2], m[3]))
	if v == "" {
		return "", mznerr.Configurationf("invalid driver version %s.%s.%s", m[1], m[2], m[3])
	}
	return v, nil
}

// AtLeast reports whether version is the same as or newer than min.
func AtLeast(version, min string) bool {
	return semver.Compare(version, min) >= 0
}
