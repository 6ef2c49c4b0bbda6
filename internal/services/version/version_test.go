package version

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		version string
		valid   bool
	}{
		{"1.0.0", true},
		{"v1.2.3", true},
		{"v1.2.3-beta.1", true},
		{"1.2.3+build.5", true},
		{"1.2", false},
		{"latest", false},
		{"v1.2.3; rm -rf /", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			err := Validate(tt.version)
			if tt.valid && err != nil {
				t.Errorf("Validate(%q) returned error: %v", tt.version, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Validate(%q) expected error", tt.version)
			}
		})
	}
}

func TestIsRelease(t *testing.T) {
	tests := []struct {
		version string
		release bool
	}{
		{"v1.0.0", true},
		{"1.0.0+meta", true},
		{"v1.0.0-rc.1", false},
		{"dev", false},
	}

	for _, tt := range tests {
		if got := IsRelease(tt.version); got != tt.release {
			t.Errorf("IsRelease(%q) = %v, want %v", tt.version, got, tt.release)
		}
	}
}

func TestGet(t *testing.T) {
	old := Version
	Version = "v2.0.0"
	defer func() { Version = old }()

	info := Get()
	if info.Version != "v2.0.0" || !info.Release {
		t.Errorf("Get() = %+v, want release v2.0.0", info)
	}
	if info.GoVersion == "" {
		t.Error("Expected Go version to be set")
	}
	if !strings.Contains(info.String(), "v2.0.0") {
		t.Errorf("String() = %q, want it to contain the version", info.String())
	}
}
