// Package fetch downloads prebuilt native artifacts. Projects that skip the
// toolchain build describe their prebuilt downloads in DEPS.yml and run
// fetch-deps to populate the tree.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v3"

	"github.com/elevans/imgal/pkg/buildlog"
)

// ConfigFileName is the dependency list looked up next to the manifest.
const ConfigFileName = "DEPS.yml"

const stampFileName = "DEPS.stamps"

// Spec describes a single downloadable dependency.
type Spec struct {
	// Condition lists vars that must be set for this entry to apply,
	// comma separated.
	Condition string `yaml:"if,omitempty"`
	// Rejections lists vars that must NOT be set.
	Rejections string `yaml:"ifNot,omitempty"`
	URL        string `yaml:"url"`
	Dest       string `yaml:"dest"`
	Sha256     string `yaml:"sha256"`
	// Strip removes that many leading path elements during extraction.
	Strip int `yaml:"strip"`
	// MarkExec restores the executable bit on the listed files, zip
	// archives don't carry permissions.
	MarkExec []string `yaml:"markExec,omitempty"`
}

// Config is the parsed DEPS.yml.
type Config struct {
	Vars map[string]string `yaml:"vars"`
	Deps map[string]Spec   `yaml:"deps"`
}

// Options control a fetch run.
type Options struct {
	// Update refreshes the recorded checksums instead of failing on
	// mismatches.
	Update bool
	// ConfigFile overrides the DEPS.yml location, relative to the
	// project root.
	ConfigFile string
}

var varMatcher = regexp.MustCompile(`\{([A-Z0-9_]+)\}`)

// substituteVars replaces {NAME} placeholders in the URL.
func substituteVars(url string, vars map[string]string) string {
	return varMatcher.ReplaceAllStringFunc(url, func(varName string) string {
		return vars[varName[1:len(varName)-1]]
	})
}

// applies evaluates the spec's if/ifNot conditions against the var set.
func applies(spec Spec, vars map[string]string) bool {
	for _, condition := range strings.Split(spec.Condition, ",") {
		if condition = strings.TrimSpace(condition); condition == "" {
			continue
		}
		if vars[condition] == "" {
			return false
		}
	}

	for _, condition := range strings.Split(spec.Rejections, ",") {
		if condition = strings.TrimSpace(condition); condition == "" {
			continue
		}
		if vars[condition] != "" {
			return false
		}
	}
	return true
}

// platformVars returns the builtin vars merged with the config's own. The
// current GOOS and GOARCH are set so conditions like "if: linux" work.
func platformVars(cfg Config) map[string]string {
	vars := map[string]string{}
	for k, v := range cfg.Vars {
		vars[k] = v
	}
	vars[runtime.GOOS] = "true"
	vars[runtime.GOARCH] = "true"
	if os.Getenv("CI") == "true" {
		vars["ci"] = "true"
	}
	return vars
}

func loadConfig(root, configFile string) (Config, string, map[string]string, error) {
	var cfg Config
	if configFile == "" {
		configFile = ConfigFileName
	}
	cfgPath := filepath.Join(root, configFile)
	cfgData, err := os.ReadFile(cfgPath)
	if err != nil {
		return cfg, "", nil, eris.Wrapf(err, "could not open %s", cfgPath)
	}

	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		return cfg, "", nil, eris.Wrapf(err, "failed to parse %s", cfgPath)
	}

	stamps := map[string]string{}
	stampData, err := os.ReadFile(filepath.Join(root, stampFileName))
	if err == nil {
		if err := json.Unmarshal(stampData, &stamps); err != nil {
			return cfg, "", nil, eris.Wrap(err, "failed to parse stamps file")
		}
	} else if !eris.Is(err, os.ErrNotExist) {
		return cfg, "", nil, eris.Wrap(err, "failed to read stamps file")
	}

	return cfg, string(cfgData), stamps, nil
}

func progressBar(length int64, desc string) *progressbar.ProgressBar {
	if os.Getenv("CI") == "true" {
		return progressbar.NewOptions64(length, progressbar.OptionSetVisibility(false))
	}
	return progressbar.DefaultBytes(length, desc)
}

// Run downloads every applicable dependency from the project's DEPS.yml and
// extracts it to its destination. Entries whose URL, checksum and
// destination are unchanged since the recorded stamp are skipped.
func Run(ctx context.Context, root string, opts Options) error {
	cfg, cfgData, stamps, err := loadConfig(root, opts.ConfigFile)
	if err != nil {
		return err
	}

	runErr := fetchAll(ctx, cfg, cfgData, stamps, root, opts)

	stampData, err := json.Marshal(stamps)
	if err == nil {
		err = os.WriteFile(filepath.Join(root, stampFileName), stampData, 0o660)
	}
	if err != nil {
		buildlog.Log(ctx).Error().Err(err).Msg("failed to write stamps file")
	}

	return runErr
}

func fetchAll(ctx context.Context, cfg Config, cfgData string, stamps map[string]string, root string, opts Options) error {
	client := &http.Client{Timeout: 30 * time.Minute}
	vars := platformVars(cfg)
	checksumUpdates := map[string]string{}

	for name, spec := range cfg.Deps {
		spec.URL = substituteVars(spec.URL, vars)

		// conditions still get evaluated during an update run so every
		// checksum can be refreshed
		skip := !applies(spec, vars)
		if skip && !opts.Update {
			continue
		}

		destPath := filepath.Join(root, spec.Dest)
		destInfo, err := os.Stat(destPath)
		destExists := err == nil

		stampToken := spec.URL + "#" + spec.Sha256
		if stamp, ok := stamps[name]; ok && stamp == stampToken && destExists {
			continue
		}

		if spec.Sha256 == "" && !opts.Update {
			return eris.Errorf("dependency %s doesn't have a checksum", name)
		}

		buildlog.Log(ctx).Info().
			Str("dep", name).
			Msg(spec.URL)

		download, digest, err := downloadToTemp(ctx, client, spec.URL)
		if err != nil {
			return err
		}

		if digest != spec.Sha256 {
			if !opts.Update {
				os.Remove(download)
				return eris.Errorf("checksum mismatch for %s: got %s", name, digest)
			}
			checksumUpdates[name] = digest
		}

		if skip {
			os.Remove(download)
			continue
		}

		if destExists {
			if destInfo.IsDir() {
				err = os.RemoveAll(destPath)
			} else {
				err = os.Remove(destPath)
			}
			if err != nil {
				os.Remove(download)
				return err
			}
		}

		err = extract(spec.URL, download, destPath, spec.Strip)
		os.Remove(download)
		if err != nil {
			return err
		}

		if runtime.GOOS != "windows" {
			for _, binPath := range spec.MarkExec {
				binPath = filepath.Join(destPath, binPath)
				fi, err := os.Stat(binPath)
				if err != nil {
					return eris.Wrapf(err, "failed to read permissions for %s", binPath)
				}
				if err := os.Chmod(binPath, fi.Mode()|0o700); err != nil {
					return eris.Wrapf(err, "failed to mark %s as executable", binPath)
				}
			}
		}

		stamps[name] = stampToken
	}

	if opts.Update && len(checksumUpdates) > 0 {
		updated, err := rewriteChecksums(cfgData, cfg, checksumUpdates)
		if err != nil {
			return err
		}
		configFile := opts.ConfigFile
		if configFile == "" {
			configFile = ConfigFileName
		}
		if err := os.WriteFile(filepath.Join(root, configFile), []byte(updated), 0o660); err != nil {
			return eris.Wrap(err, "failed to update the dependency list")
		}
	}

	return nil
}

func downloadToTemp(ctx context.Context, client *http.Client, url string) (string, string, error) {
	tmp, err := os.CreateTemp("", "imgal-dl-*")
	if err != nil {
		return "", "", eris.Wrap(err, "failed to create download file")
	}
	defer tmp.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		os.Remove(tmp.Name())
		return "", "", eris.Wrapf(err, "failed to build request for %s", url)
	}

	resp, err := client.Do(req)
	if err != nil {
		os.Remove(tmp.Name())
		return "", "", eris.Wrapf(err, "failed to start download for %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		os.Remove(tmp.Name())
		return "", "", eris.Errorf("download of %s failed with status %s", url, resp.Status)
	}

	hash := sha256.New()
	bar := progressBar(resp.ContentLength, "     download")
	if _, err := io.Copy(io.MultiWriter(tmp, hash, bar), resp.Body); err != nil {
		os.Remove(tmp.Name())
		return "", "", eris.Wrapf(err, "failed during download of %s", url)
	}
	bar.Finish()

	return tmp.Name(), hex.EncodeToString(hash.Sum(nil)), nil
}

// rewriteChecksums patches new sha256 values into the raw DEPS.yml text so
// the file keeps its comments and formatting.
func rewriteChecksums(cfgData string, cfg Config, changes map[string]string) (string, error) {
	generated := cfgData
	for name, newChecksum := range changes {
		pos := strings.Index(generated, name+":")
		if pos == -1 {
			return "", eris.Errorf("failed to find the section for %s", name)
		}

		old := cfg.Deps[name].Sha256
		if old == "" {
			insert := pos + strings.IndexByte(generated[pos:], '\n') + 1
			generated = generated[:insert] + "    sha256: " + newChecksum + "\n" + generated[insert:]
			continue
		}

		subPos := strings.Index(generated[pos:], "sha256: "+old)
		if subPos == -1 {
			return "", eris.Errorf("failed to find the checksum for %s", name)
		}

		start := pos + subPos + len("sha256: ")
		generated = generated[:start] + newChecksum + generated[start+len(old):]
	}
	return generated, nil
}
