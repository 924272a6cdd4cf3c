package app

import (
	"os"
	"runtime/debug"
	"sync"
)

const testModeEnv = "ORDERFLOW_TEST_MODE"

var (
	testModeOnce sync.Once
	testMode     bool

	buildOnce    sync.Once
	buildVersion = "dev"
)

// InTestMode reports whether binaries should return before touching Postgres or Redis.
// The flag is read once per process.
func InTestMode() bool {
	testModeOnce.Do(func() {
		testMode = os.Getenv(testModeEnv) == "1"
	})
	return testMode
}

// Version returns the module version stamped by the Go toolchain, or the VCS
// revision for local builds.
func Version() string {
	buildOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		if v := info.Main.Version; v != "" && v != "(devel)" {
			buildVersion = v
			return
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 12 {
				buildVersion = s.Value[:12]
				return
			}
		}
	})
	return buildVersion
}
