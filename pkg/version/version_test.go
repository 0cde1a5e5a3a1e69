package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	origVersion, origCommit, origBuildTime := Version, GitCommit, BuildTime
	defer func() {
		Version, GitCommit, BuildTime = origVersion, origCommit, origBuildTime
	}()

	Version = "1.2.3"
	GitCommit = "abc123def"
	BuildTime = "2024-01-15T10:30:00Z"

	s := String()
	assert.Contains(t, s, "clausegraph 1.2.3")
	assert.Contains(t, s, "commit: abc123def")
	assert.Contains(t, s, "built: 2024-01-15T10:30:00Z")
	assert.Contains(t, s, runtime.Version())
}

func TestInfo(t *testing.T) {
	origCommit := GitCommit
	defer func() { GitCommit = origCommit }()
	GitCommit = "deadbeef"

	info := Info()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, "deadbeef", info.Commit)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}
