// Package clipboard copies text to the system clipboard through the
// platform's command-line tools.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrClipboardUnavailable is returned when no clipboard tool is installed.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// tool is one clipboard writer and its arguments.
type tool struct {
	name string
	args []string
}

// tools lists clipboard writers per GOOS in order of preference.
var tools = map[string][]tool{
	"darwin": {{name: "pbcopy"}},
	"linux": {
		{name: "wl-copy"},
		{name: "xclip", args: []string{"-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
	},
	"windows": {{name: "clip.exe"}},
}

// Writer copies text using the first clipboard tool found on the PATH.
type Writer struct {
	goos     string
	lookPath func(string) (string, error)
}

// New creates a Writer for the running platform.
func New() *Writer {
	return &Writer{goos: runtime.GOOS, lookPath: exec.LookPath}
}

// find returns the path and arguments of the preferred installed tool.
func (w *Writer) find() (string, []string, error) {
	for _, t := range tools[w.goos] {
		if path, err := w.lookPath(t.name); err == nil {
			return path, t.args, nil
		}
	}
	return "", nil, ErrClipboardUnavailable
}

// Available reports whether a clipboard tool is installed.
func (w *Writer) Available() bool {
	_, _, err := w.find()
	return err == nil
}

// Copy writes text to the clipboard.
// Returns ErrClipboardUnavailable if no clipboard tool is installed.
func (w *Writer) Copy(ctx context.Context, text string) error {
	path, args, err := w.find()
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", path, err, strings.TrimSpace(string(out)))
	}
	return nil
}
