package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/colorstring"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// prefixFields are event fields rendered as "name: " prefixes ahead of the
// message, in this order.
var prefixFields = []string{"task", "hook"}

// ConsoleWriter renders zerolog's JSON events as colored console lines.
type ConsoleWriter struct {
	out   io.Writer
	debug bool
	lock  sync.Mutex
}

func NewConsoleWriter() *ConsoleWriter {
	return &ConsoleWriter{
		out:   os.Stderr,
		debug: os.Getenv("IMGAL_DEBUG") != "",
	}
}

func (w *ConsoleWriter) Write(p []byte) (int, error) {
	var evt map[string]interface{}
	d := json.NewDecoder(bytes.NewReader(p))
	d.UseNumber()
	if err := d.Decode(&evt); err != nil {
		return 0, eris.Wrapf(err, "cannot decode event: %s", p)
	}

	level, _ := evt["level"].(string)

	var line bytes.Buffer
	line.WriteString(levelColor(level))
	for _, field := range prefixFields {
		if value, ok := evt[field].(string); ok {
			line.WriteString(value + ": ")
		}
	}
	if level == "error" {
		line.WriteString("Error: ")
	}
	line.WriteString(eventMessage(evt))

	if details, ok := evt["error"].(string); ok {
		line.WriteString("\n" + details)
	}
	if w.debug {
		names := make([]string, 0, len(evt))
		for name := range evt {
			names = append(names, name)
		}
		sort.Strings(names)

		line.WriteString("\n")
		for _, name := range names {
			fmt.Fprintf(&line, "  %s: %+v\n", name, evt[name])
		}
	}
	line.WriteString("[reset]\n")

	w.lock.Lock()
	defer w.lock.Unlock()
	return colorstring.Fprint(w.out, line.String())
}

func levelColor(level string) string {
	switch level {
	case "fatal", "error":
		return "[red]"
	case "warn":
		return "[yellow]"
	case "debug", "trace":
		return "[blue]"
	default:
		return "[green]"
	}
}

// eventMessage returns the event message with any reported path shortened to
// a working-directory relative one.
func eventMessage(evt map[string]interface{}) string {
	msg, _ := evt["message"].(string)
	if path, ok := evt["path"].(string); ok {
		if rel, err := filepath.Rel(".", path); err == nil {
			msg = strings.ReplaceAll(msg, path, rel)
		}
	}
	return msg
}

func init() {
	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		return eris.ToString(err, os.Getenv("IMGAL_DEBUG") != "")
	}
}
