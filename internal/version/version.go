package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/fatih/color"
)

// Version information for the borrowinfer CLI.
// These variables can be overridden at build time via -ldflags.
var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)
)

// Colored renders Version with one color per component. A version that
// does not parse is returned as is.
func Colored() string {
	v, err := semver.NewVersion(Version)
	if err != nil {
		return Version
	}
	var b strings.Builder
	b.WriteString(versionMajorColor.Sprint(v.Major()))
	b.WriteByte('.')
	b.WriteString(versionMinorColor.Sprint(v.Minor()))
	b.WriteByte('.')
	b.WriteString(versionPatchColor.Sprint(v.Patch()))
	if pre := v.Prerelease(); pre != "" {
		b.WriteString("-" + pre)
	}
	return b.String()
}
