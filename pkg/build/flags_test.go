// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	name, stamp, commit, version := buildName, buildTime, buildCommit, buildVersion
	info := buildInfo

	code := m.Run()

	buildName, buildTime, buildCommit, buildVersion = name, stamp, commit, version
	buildInfo = info
	os.Exit(code)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name                  string
		bName, bTime, bCommit string
		bVersion              string
		wantErrs              []string
	}{
		{"missing name", "", "2026-01-02", "abcdef1", "v1.0.0", []string{"BuildName is required"}},
		{"missing time", "openhush", "", "abcdef1", "v1.0.0", []string{"BuildTime is required"}},
		{"missing commit", "openhush", "2026-01-02", "", "v1.0.0", []string{"BuildCommit is required"}},
		{"missing version", "openhush", "2026-01-02", "abcdef1", "", []string{"BuildVersion is required"}},
		{"missing all", "", "", "", "", []string{"BuildName", "BuildTime", "BuildCommit", "BuildVersion"}},
		{"complete", "openhush", "2026-01-02", "abcdef1", "v1.0.0", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildInfo = defaultInfo()
			buildName, buildTime, buildCommit, buildVersion = tt.bName, tt.bTime, tt.bCommit, tt.bVersion

			err := Initialize()
			if len(tt.wantErrs) > 0 {
				if err == nil {
					t.Fatal("Initialize() expected error, got nil")
				}
				for _, want := range tt.wantErrs {
					if !strings.Contains(err.Error(), want) {
						t.Errorf("Initialize() error = %q, want it to mention %q", err, want)
					}
				}
				if Get() != defaultInfo() {
					t.Errorf("failed Initialize changed Info to %+v", Get())
				}
				return
			}

			if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}
			got := Get()
			if got.Name != tt.bName || got.Time != tt.bTime || got.Commit != tt.bCommit || got.Version != tt.bVersion {
				t.Errorf("Get() = %+v", got)
			}
			if got.Description == "" {
				t.Error("Description was cleared")
			}
		})
	}
}

func TestInfoString(t *testing.T) {
	info := Info{Name: "openhush", Version: "v1.2.3", Commit: "abc", Time: "2026-01-02"}
	want := "openhush v1.2.3 (commit abc, built 2026-01-02)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
