package build

import (
	"github.com/Masterminds/semver/v3"
)

// rawVersion is this wallet core's own semantic version.
const rawVersion = "1.0.0"

// Version is the parsed semantic version of this build.
var Version = semver.MustParse(rawVersion)

// MeetsMinimum reports whether Version satisfies a ">= min" constraint.
func MeetsMinimum(min string) (bool, error) {
	return VersionMeets(rawVersion, min)
}

// VersionMeets reports whether version satisfies a ">= min" constraint,
// used to gate the sync handshake (SPEC_FULL.md §4.8): the remote's
// self-reported server_version is checked against the locally configured
// min_server_version.
func VersionMeets(version, min string) (bool, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, err
	}
	c, err := semver.NewConstraint(">= " + min)
	if err != nil {
		return false, err
	}
	return c.Check(v), nil
}
