package platform

import (
	"runtime"
	"testing"
)

func TestForOS(t *testing.T) {
	cases := []struct {
		os   string
		file string
	}{
		{"linux", "libimgal.so"},
		{"windows", "imgal.dll"},
		{"darwin", "libimgal.dylib"},
	}

	for _, tc := range cases {
		t.Run(tc.os, func(t *testing.T) {
			v, err := ForOS(tc.os)
			if err != nil {
				t.Fatalf("ForOS(%q) failed: %v", tc.os, err)
			}
			if got := v.FileName("imgal"); got != tc.file {
				t.Errorf("FileName() = %q, want %q", got, tc.file)
			}
		})
	}

	if _, err := ForOS("plan9"); err == nil {
		t.Error("ForOS accepted an unknown OS")
	}
}

func TestExactlyOneVariantPerOS(t *testing.T) {
	// every supported OS maps to exactly one extension
	seen := map[string]int{}
	for _, v := range Variants() {
		seen[v.OS]++
	}
	for os, n := range seen {
		if n != 1 {
			t.Errorf("OS %s has %d variants, want exactly 1", os, n)
		}
	}

	if runtime.GOOS == "linux" || runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		if _, err := Current(); err != nil {
			t.Errorf("Current() failed: %v", err)
		}
	}
}

func TestIsIntermediate(t *testing.T) {
	intermediates := []string{"libimgal.d", "libimgal.rlib", "imgal.pdb", "imgal.exp", "imgal.lib"}
	for _, name := range intermediates {
		if !IsIntermediate(name) {
			t.Errorf("IsIntermediate(%q) = false, want true", name)
		}
	}

	artifacts := []string{"libimgal.so", "imgal.dll", "libimgal.dylib"}
	for _, name := range artifacts {
		if IsIntermediate(name) {
			t.Errorf("IsIntermediate(%q) = true, want false", name)
		}
	}
}
