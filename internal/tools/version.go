package tools

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

var (
	lowestVersion  = semver.MustParse("0.0.0")
	highestVersion = semver.MustParse("99.99.99")
)

// parseRange parses optional version bounds. Missing bounds default to
// 0.0.0 and 99.99.99. Partial versions such as "2.5" are accepted.
func parseRange(minVersion, maxVersion string) (*semver.Version, *semver.Version, error) {
	lo, hi := lowestVersion, highestVersion

	if minVersion != "" {
		v, err := semver.NewVersion(minVersion)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid minimum version %q: %w", minVersion, err)
		}
		lo = v
	}
	if maxVersion != "" {
		v, err := semver.NewVersion(maxVersion)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid maximum version %q: %w", maxVersion, err)
		}
		hi = v
	}
	if lo.GreaterThan(hi) {
		return nil, nil, fmt.Errorf("minimum version %s is above maximum version %s", lo, hi)
	}
	return lo, hi, nil
}

// inRange reports whether v lies within [lo, hi]. A nil v is treated as
// compatible. Pre-release suffixes are ignored.
func inRange(v, lo, hi *semver.Version) bool {
	if v == nil {
		return true
	}
	base, err := semver.NewVersion(fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch()))
	if err != nil {
		return true
	}
	return !base.LessThan(lo) && !base.GreaterThan(hi)
}
