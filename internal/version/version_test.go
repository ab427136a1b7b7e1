package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, version, info.Version)
	assert.NotEmpty(t, info.Commit)
	assert.NotEmpty(t, info.Date)
	assert.Equal(t, GetVersion(), info.Version)
}

func TestGetPrefersLdflags(t *testing.T) {
	prevCommit, prevDate := commit, date
	t.Cleanup(func() { commit, date = prevCommit, prevDate })

	commit, date = "abc123", "2026-05-04"
	assert.Equal(t, BuildInfo{Version: version, Commit: "abc123", Date: "2026-05-04"}, Get())
	assert.Equal(t, "version="+version+" commit=abc123 date=2026-05-04", String())
}
