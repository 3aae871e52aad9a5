package main

import (
	"testing"
)

func TestDemoScene(t *testing.T) {
	tests := []struct {
		name        string
		object      string
		fits        string
		expectError bool
	}{
		{"torus scene", "torus", "", false},
		{"disk3d without fits", "disk3d", "", true},
		{"unknown object", "nebula", "", true},
		{"empty object", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sd, err := demoScene(tt.object, tt.fits, 64, 2)
			if tt.expectError {
				if err == nil {
					t.Errorf("demoScene(%q) succeeded, want error", tt.object)
				}
				return
			}
			if err != nil {
				t.Fatalf("demoScene(%q): %v", tt.object, err)
			}
			if sd.Astrobj.Kind != tt.object {
				t.Errorf("astrobj kind = %q, want %q", sd.Astrobj.Kind, tt.object)
			}
			if sd.Screen.Width != 64 || sd.Screen.Height != 64 {
				t.Errorf("screen = %dx%d, want 64x64", sd.Screen.Width, sd.Screen.Height)
			}
			if sd.NThreads != 2 {
				t.Errorf("threads = %d, want 2", sd.NThreads)
			}
			if _, err := sd.Build(); err != nil {
				t.Errorf("Build: %v", err)
			}
		})
	}
}

func TestDemoSceneDefaultsThreads(t *testing.T) {
	sd, err := demoScene("torus", "", 32, 0)
	if err != nil {
		t.Fatal(err)
	}
	if sd.NThreads <= 0 {
		t.Errorf("threads = %d, want a positive CPU-derived default", sd.NThreads)
	}
}
