// Package manifest loads and validates the project build descriptor. The
// descriptor declares what to build (the native library and its toolchain
// command), how to stage the resulting shared-library artifact, and how to
// package the distributable archive, with profiles providing named property
// overrides on top.
package manifest

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/elevans/imgal/pkg/platform"
)

// DefaultFileName is the manifest file searched for when none is given.
const DefaultFileName = "project.yml"

// Manifest is the parsed build descriptor.
type Manifest struct {
	Project  Project   `yaml:"project"`
	Native   Native    `yaml:"native"`
	Staging  Staging   `yaml:"staging"`
	Package  Package   `yaml:"package"`
	Profiles []Profile `yaml:"profiles"`
	Hooks    string    `yaml:"hooks"`
	Deps     string    `yaml:"deps"`

	root string
}

// Project holds the distribution coordinates of the build.
type Project struct {
	Name    string `yaml:"name"`
	Group   string `yaml:"group"`
	Version string `yaml:"version"`
}

// Native describes the external toolchain invocation that produces the
// shared library.
type Native struct {
	// Dir is the working directory the toolchain command runs in.
	Dir string `yaml:"dir"`
	// Build is the release-mode toolchain command line.
	Build string `yaml:"build"`
	// Output is the directory the toolchain writes its artifacts to.
	Output string `yaml:"output"`
	// Library is the base name of the shared library, without platform
	// prefix or extension.
	Library string `yaml:"library"`
	// Skip bypasses the toolchain invocation entirely.
	Skip bool `yaml:"skip"`
	// Inputs are optional glob patterns for the up-to-date check.
	Inputs []string `yaml:"inputs"`
}

// Staging describes where the shared-library artifact is copied to and which
// files are excluded from the copy.
type Staging struct {
	Dest    string   `yaml:"dest"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// Package describes the final archive.
type Package struct {
	Classes   string   `yaml:"classes"`
	Output    string   `yaml:"output"`
	MainClass string   `yaml:"mainClass"`
	ClassPath []string `yaml:"classPath"`
}

// Profile is a named set of property overrides. At most one profile is
// active per invocation; the one marked default applies unless another is
// selected explicitly or activated through its env matcher.
type Profile struct {
	Name       string            `yaml:"name"`
	Default    bool              `yaml:"default"`
	Env        map[string]string `yaml:"env"`
	Properties map[string]string `yaml:"properties"`
}

// Load reads and validates the manifest at the given path. Omitted fields
// receive their documented defaults.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read manifest %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "failed to parse manifest %s", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	m.root = filepath.Dir(abs)

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, eris.Wrapf(err, "invalid manifest %s", path)
	}

	return &m, nil
}

// Root returns the directory containing the manifest file. All relative
// paths in the manifest resolve against it.
func (m *Manifest) Root() string {
	return m.root
}

// Path resolves a manifest-relative path against the manifest root.
func (m *Manifest) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(m.root, rel)
}

// ArchiveName returns the file name of the distributable archive.
func (m *Manifest) ArchiveName() string {
	return m.Project.Name + "-" + m.Project.Version + ".jar"
}

func (m *Manifest) applyDefaults() {
	if m.Native.Dir == "" {
		m.Native.Dir = "native"
	}
	if m.Native.Build == "" {
		m.Native.Build = "cargo build --release"
	}
	if m.Native.Output == "" {
		m.Native.Output = filepath.Join(m.Native.Dir, "target", "release")
	}
	if m.Native.Library == "" {
		m.Native.Library = m.Project.Name
	}
	if m.Staging.Dest == "" {
		m.Staging.Dest = filepath.Join("build", "resources", "natives")
	}
	if m.Staging.Exclude == nil {
		for _, suffix := range platform.IntermediateSuffixes {
			m.Staging.Exclude = append(m.Staging.Exclude, "*"+suffix)
		}
	}
	if m.Package.Classes == "" {
		m.Package.Classes = filepath.Join("build", "classes")
	}
	if m.Package.Output == "" {
		m.Package.Output = filepath.Join("build", "dist")
	}
	if len(m.Profiles) == 0 {
		m.Profiles = []Profile{{Name: "default", Default: true}}
	}
}

// Validate checks the manifest for structural errors.
func (m *Manifest) Validate() error {
	if m.Project.Name == "" {
		return eris.New("project.name must be set")
	}
	if m.Project.Version == "" {
		return eris.New("project.version must be set")
	}

	defaults := 0
	seen := map[string]bool{}
	for _, p := range m.Profiles {
		if p.Name == "" {
			return eris.New("profiles must be named")
		}
		if seen[p.Name] {
			return eris.Errorf("duplicate profile %s", p.Name)
		}
		seen[p.Name] = true
		if p.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return eris.Errorf("found %d default profiles, at most one is allowed", defaults)
	}

	return nil
}

// ActiveProfile selects the profile for this invocation. An explicit name
// wins; otherwise the first profile whose env matcher is satisfied applies,
// falling back to the default profile.
func (m *Manifest) ActiveProfile(name string) (Profile, error) {
	if name != "" {
		for _, p := range m.Profiles {
			if p.Name == name {
				return p, nil
			}
		}
		return Profile{}, eris.Errorf("profile %s is not declared in the manifest", name)
	}

	for _, p := range m.Profiles {
		if len(p.Env) == 0 {
			continue
		}
		matched := true
		for key, want := range p.Env {
			if os.Getenv(key) != want {
				matched = false
				break
			}
		}
		if matched {
			return p, nil
		}
	}

	for _, p := range m.Profiles {
		if p.Default {
			return p, nil
		}
	}

	return Profile{}, eris.New("no profile selected and none is marked default")
}

// Resolve returns a copy of the manifest with the profile's properties
// applied on top, plus any extra property overrides (highest precedence).
func (m *Manifest) Resolve(profile Profile, extra map[string]string) (*Manifest, error) {
	resolved := *m

	apply := func(props map[string]string) error {
		for key, value := range props {
			if err := resolved.setProperty(key, value); err != nil {
				return eris.Wrapf(err, "profile %s", profile.Name)
			}
		}
		return nil
	}

	if err := apply(profile.Properties); err != nil {
		return nil, err
	}
	if err := apply(extra); err != nil {
		return nil, err
	}

	return &resolved, nil
}

func (m *Manifest) setProperty(key, value string) error {
	switch key {
	case "native.skip":
		skip, err := strconv.ParseBool(value)
		if err != nil {
			return eris.Wrapf(err, "property %s expects a boolean", key)
		}
		m.Native.Skip = skip
	case "native.build":
		m.Native.Build = value
	case "native.dir":
		m.Native.Dir = value
	case "native.output":
		m.Native.Output = value
	case "native.library":
		m.Native.Library = value
	case "staging.dest":
		m.Staging.Dest = value
	case "package.classes":
		m.Package.Classes = value
	case "package.output":
		m.Package.Output = value
	case "package.mainClass":
		m.Package.MainClass = value
	default:
		return eris.Errorf("unknown property %s", key)
	}
	return nil
}
