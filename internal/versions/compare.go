package versions

import "github.com/Masterminds/semver/v3"

// IsNewerVersion reports whether newVersion is strictly greater than oldVersion.
// The file store uses it to refuse documents written by a newer schema.
// An empty newVersion predates versioning and is never newer. Other
// non-semver input falls back to plain string comparison.
func IsNewerVersion(newVersion, oldVersion string) bool {
	if newVersion == "" {
		return false
	}

	newSemver, errNew := semver.NewVersion(newVersion)
	oldSemver, errOld := semver.NewVersion(oldVersion)
	if errNew != nil || errOld != nil {
		return newVersion > oldVersion
	}

	return newSemver.GreaterThan(oldSemver)
}
