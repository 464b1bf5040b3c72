// Package platform describes the platform-specific naming of native shared
// libraries and the toolchain intermediates that must never ship with them.
package platform

import (
	"runtime"

	"github.com/rotisserie/eris"
)

// Variant describes how one operating system names its shared libraries.
type Variant struct {
	// OS is the GOOS value the variant applies to.
	OS string
	// Prefix is prepended to the library base name ("lib" outside Windows).
	Prefix string
	// Extension is the shared-library suffix including the leading dot.
	Extension string
}

// FileName returns the platform file name for the given library base name,
// e.g. "imgal" becomes "libimgal.so" on Linux.
func (v Variant) FileName(name string) string {
	return v.Prefix + name + v.Extension
}

// Pattern returns the glob matching every shared library of this variant.
func (v Variant) Pattern() string {
	return "*" + v.Extension
}

// variants holds the three mutually exclusive shared-library conventions.
// Exactly one applies to any single-platform build environment.
var variants = []Variant{
	{OS: "linux", Prefix: "lib", Extension: ".so"},
	{OS: "windows", Prefix: "", Extension: ".dll"},
	{OS: "darwin", Prefix: "lib", Extension: ".dylib"},
}

// IntermediateSuffixes lists toolchain by-products that are written next to
// the shared library but must never be staged.
var IntermediateSuffixes = []string{".d", ".rlib", ".pdb", ".exp", ".lib"}

// Variants returns all known shared-library variants.
func Variants() []Variant {
	result := make([]Variant, len(variants))
	copy(result, variants)
	return result
}

// ForOS returns the shared-library variant for the given GOOS value.
func ForOS(os string) (Variant, error) {
	for _, v := range variants {
		if v.OS == os {
			return v, nil
		}
	}

	return Variant{}, eris.Errorf("no shared-library convention known for OS %s", os)
}

// Current returns the shared-library variant of the running platform.
func Current() (Variant, error) {
	return ForOS(runtime.GOOS)
}

// IsIntermediate reports whether the file name carries one of the toolchain
// intermediate suffixes.
func IsIntermediate(name string) bool {
	for _, suffix := range IntermediateSuffixes {
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			return true
		}
	}
	return false
}
