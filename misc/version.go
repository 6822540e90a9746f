// Package misc keeps build time program information.
package misc

// Set by the linker: -X hmlt/misc.version=... -X hmlt/misc.gitHash=...
var (
	version = "dev"
	gitHash = "unknown"
)

const appName = "hmlt"

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
