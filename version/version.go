package version

import (
	"fmt"
	"runtime"
)

const (
	majorVersion uint32 = 0
	minorVersion uint32 = 1
	patchVersion uint32 = 0
)

// gitCommit is set at build time:
//   go build -ldflags "-X massnet.org/massdigest/version.gitCommit=$(git rev-parse HEAD)"
var gitCommit string

// GetVersion returns "<major>.<minor>.<patch>[+<commit>]", like "0.1.0" or
// "0.1.0+1a2b3c4d".
func GetVersion() string {
	return format(majorVersion, minorVersion, patchVersion, gitCommit)
}

func format(major, minor, patch uint32, commit string) string {
	s := fmt.Sprintf("%d.%d.%d", major, minor, patch)
	if len(commit) >= 8 {
		s += "+" + commit[:8]
	}
	return s
}

// Detail adds the Go runtime and platform to GetVersion.
func Detail() string {
	return fmt.Sprintf("%s (%s %s/%s)", GetVersion(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
