package testutil

import (
	"io/ioutil"
	"os"
	"testing"
)

const envUseCI = "MASSDIGEST_CI"

// SkipCI skips long running tests unless MASSDIGEST_CI is set.
func SkipCI(t *testing.T) {
	if os.Getenv(envUseCI) == "" {
		t.Skip("Skip MASSDIGEST CI")
	}
}

// TempDir creates a directory removed by the returned func.
func TempDir(t *testing.T, prefix string) (string, func()) {
	dir, err := ioutil.TempDir("", prefix)
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	return dir, func() { os.RemoveAll(dir) }
}
