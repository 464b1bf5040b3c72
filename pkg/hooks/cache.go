package hooks

import (
	"encoding/gob"
	"os"

	"github.com/rotisserie/eris"
)

// cacheVersion invalidates caches written by incompatible binaries.
const cacheVersion = 1

// cachePayload is the gob image of one configure run.
type cachePayload struct {
	Version int
	Options map[string]string
	Tasks   TaskSet
}

func init() {
	// concrete types carried behind the Command interface
	gob.Register(ShellCommand{})
	gob.Register(TaskRef{})
}

// WriteCache stores the configure results so later invocations with the
// same option values can skip the configure step.
func WriteCache(file string, options map[string]string, tasks TaskSet) error {
	handle, err := os.Create(file)
	if err != nil {
		return eris.Wrapf(err, "failed to create cache %s", file)
	}

	payload := cachePayload{Version: cacheVersion, Options: options, Tasks: tasks}
	if err := gob.NewEncoder(handle).Encode(payload); err != nil {
		handle.Close()
		return eris.Wrapf(err, "failed to encode cache %s", file)
	}
	return handle.Close()
}

// ReadCache loads a cache written by WriteCache. Reading fails when the
// cache carries a different format version or was configured with different
// option values.
func ReadCache(file string, options map[string]string) (TaskSet, error) {
	handle, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	var payload cachePayload
	if err := gob.NewDecoder(handle).Decode(&payload); err != nil {
		return nil, eris.Wrapf(err, "failed to decode cache %s", file)
	}
	if payload.Version != cacheVersion {
		return nil, eris.Errorf("cache %s has version %d, expected %d", file, payload.Version, cacheVersion)
	}
	if !optionsEqual(payload.Options, options) {
		return nil, eris.Errorf("cache %s was configured with different options", file)
	}
	return payload.Tasks, nil
}

func optionsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
