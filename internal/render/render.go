// Package render writes CLI status lines in the colours of a theme.
package render

import (
	"fmt"
	"io"
	"os"

	vcschema "github.com/credkit/vcschema"
	"github.com/credkit/vcschema/normalize"
)

// Theme is a palette of ANSI SGR codes.
type Theme struct {
	Name  string
	OK    string
	Warn  string
	Error string
	Muted string
}

var themes = map[string]Theme{
	"light": {Name: "light", OK: "32", Warn: "33", Error: "31", Muted: "90"},
	"dark":  {Name: "dark", OK: "92", Warn: "93", Error: "91", Muted: "37"},
}

// ThemeByName returns the light or dark theme.
func ThemeByName(name string) (Theme, error) {
	t, ok := themes[name]
	if !ok {
		return Theme{}, fmt.Errorf("unknown theme %q (want light or dark)", name)
	}
	return t, nil
}

// Printer writes status lines to w. Colour is used only when enabled.
type Printer struct {
	w     io.Writer
	theme Theme
	color bool
}

// New returns a Printer for theme. color forces colour on or off.
func New(w io.Writer, theme Theme, color bool) *Printer {
	return &Printer{w: w, theme: theme, color: color}
}

// IsTerminal reports whether w is a character device, the usual test for
// whether colour escapes will be shown.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func (p *Printer) paint(code, s string) string {
	if !p.color || code == "" {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

// OK writes a success line.
func (p *Printer) OK(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.paint(p.theme.OK, "ok"), fmt.Sprintf(format, args...))
}

// Fail writes a failure line.
func (p *Printer) Fail(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.paint(p.theme.Error, "fail"), fmt.Sprintf(format, args...))
}

// Warn writes a warning line.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.paint(p.theme.Warn, "warn"), fmt.Sprintf(format, args...))
}

// Status writes the normalization status of subject.
func (p *Printer) Status(subject string, st normalize.Status) {
	code := p.theme.Muted
	switch st {
	case normalize.StatusValid:
		code = p.theme.OK
	case normalize.StatusInvalid:
		code = p.theme.Error
	case normalize.StatusLoading:
		code = p.theme.Warn
	}
	fmt.Fprintf(p.w, "%s %s\n", p.paint(code, string(st)), subject)
}

// Issues writes one indented line per issue, with its hint when present.
func (p *Printer) Issues(iss vcschema.Issues) {
	for _, is := range iss {
		fmt.Fprintf(p.w, "  %s %s: %s\n", p.paint(p.theme.Muted, is.Path), is.Code, is.Message)
		if is.Hint != "" {
			fmt.Fprintf(p.w, "    %s\n", p.paint(p.theme.Muted, is.Hint))
		}
	}
}
