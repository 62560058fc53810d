package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func stubBuildInfo(t *testing.T, bi *debug.BuildInfo) {
	t.Helper()
	old := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
	t.Cleanup(func() { readBuildInfo = old })
}

func TestGet_Ldflags(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Version: "v0.9.0"}})
	old := Version
	Version = "v1.2.3"
	defer func() { Version = old }()

	if got := Get().Version; got != "v1.2.3" {
		t.Errorf("Get().Version = %q, ldflags should win", got)
	}
	if tmpl := Template(); !strings.HasPrefix(tmpl, "{{.Name}} version v1.2.3 (") {
		t.Errorf("Template() = %q", tmpl)
	}
}

func TestGet_ModuleFallback(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{
		Main: debug.Module{Version: "v0.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	})

	i := Get()
	if i.Version != "v0.4.0" || i.Commit != "0123456789abcdef0123" || i.Date != "2026-01-02T03:04:05Z" {
		t.Errorf("Get() = %+v", i)
	}
	if tmpl := Template(); !strings.Contains(tmpl, "(0123456789ab, ") {
		t.Errorf("Template() = %q, want a short commit", tmpl)
	}
	if !strings.Contains(i.String(), "go: go") {
		t.Errorf("String() = %q", i.String())
	}
}

func TestGet_Devel(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	if got := Get().Version; got != Version {
		t.Errorf("Get().Version = %q, want %q", got, Version)
	}
}
