// Package version хранит сведения о сборке, проставляемые через -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// BuildInfo отдаётся в /version и в health-ответах.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Get возвращает сведения о сборке. Если commit не передан при сборке,
// берётся ревизия VCS, которую go build встраивает сам.
func Get() BuildInfo {
	info := BuildInfo{Version: version, Commit: commit, Date: date}
	if info.Commit != "unknown" {
		return info
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.Commit = s.Value
			case "vcs.time":
				if info.Date == "unknown" {
					info.Date = s.Value
				}
			}
		}
	}
	return info
}

// GetVersion возвращает только номер версии.
func GetVersion() string { return version }

func String() string {
	info := Get()
	return fmt.Sprintf("version=%s commit=%s date=%s", info.Version, info.Commit, info.Date)
}
