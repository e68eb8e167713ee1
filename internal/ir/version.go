package ir

// Version constants for the spec format and the controller.
const (
	// SpecVersion01 is the v0.1 document format version tag.
	SpecVersion01 = "0.1"

	// ControllerVersion is the stratum-mcp release version.
	ControllerVersion = "0.1.0"
)

// SupportedVersions lists the spec format versions with a registered
// schema, oldest first. Adding a version means appending here and
// registering one schema in internal/spec.
var SupportedVersions = []string{SpecVersion01}

// LatestVersion returns the newest supported spec format version.
func LatestVersion() string {
	return SupportedVersions[len(SupportedVersions)-1]
}
