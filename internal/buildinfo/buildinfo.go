package buildinfo

import "runtime/debug"

// version is stamped with -ldflags "-X github.com/Gnarus-G/mcro/internal/buildinfo.version=v1.2.3".
var version = "dev"

// readBuildInfo is declared for swapping in tests.
var readBuildInfo = debug.ReadBuildInfo

// Version returns the release tag, the module version recorded by `go install`,
// or the short VCS revision for local builds.
func Version() string {
	if version != "dev" {
		return version
	}
	info, ok := readBuildInfo()
	if !ok {
		return version
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
			return "dev-" + setting.Value[:7]
		}
	}
	return version
}
