// Package output renders command results for terminals, pipes and
// machines. Auto mode picks styled text on a TTY and markdown otherwise.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Mode selects the output format.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// ValidModes lists the accepted --output values.
var ValidModes = []string{string(ModeAuto), string(ModeText), string(ModeMarkdown), string(ModeJSON)}

// Renderer writes results in the configured mode.
type Renderer struct {
	out    io.Writer
	err    io.Writer
	mode   Mode
	isTTY  bool
	lip    *lipgloss.Renderer
	styles *Styles
}

// NewRenderer creates a renderer. An empty mode means ModeAuto.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	return NewRendererWithTTY(out, errOut, isTerminal(out), mode)
}

// NewRendererWithTTY creates a renderer with an explicit TTY state.
// Tests use it to get text output from a buffer.
func NewRendererWithTTY(out, errOut io.Writer, tty bool, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}

	lip := lipgloss.NewRenderer(out)
	if !tty {
		lip.SetColorProfile(termenv.Ascii)
	}

	return &Renderer{
		out:    out,
		err:    errOut,
		mode:   mode,
		isTTY:  tty,
		lip:    lip,
		styles: NewStyles(lip),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// Mode returns the configured mode.
func (r *Renderer) Mode() Mode { return r.mode }

// EffectiveMode resolves ModeAuto against the writer.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// Styles returns the text styles.
func (r *Renderer) Styles() *Styles { return r.styles }

// Lip returns the lipgloss renderer bound to the output writer.
func (r *Renderer) Lip() *lipgloss.Renderer { return r.lip }

// Swatch renders a color block followed by its hex code. Without color
// support only the block character and code are printed.
func (r *Renderer) Swatch(hex string) string {
	return r.lip.NewStyle().Foreground(lipgloss.Color(hex)).Render("■") + " " + hex
}

// Writer returns the primary output writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter returns the diagnostics writer.
func (r *Renderer) ErrWriter() io.Writer { return r.err }

// Println writes a line to the output.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Header prints a level 1 or 2 header in the effective mode.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatHeader(level, text))
		r.Println("")
		return
	}
	style := r.styles.Header2
	if level <= 1 {
		style = r.styles.Header1
	}
	r.Println(style.Render(text))
}

// Warn writes a warning to the diagnostics writer.
func (r *Renderer) Warn(msg string) {
	_, _ = fmt.Fprintln(r.err, r.styles.Warning.Render("warning: ")+msg)
}

// Success prints a success message.
func (r *Renderer) Success(msg string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println("**" + msg + "**")
		return
	}
	r.Println(r.styles.Success.Render(msg))
}

// StatusLine prints one item with a status mark and optional detail.
// status is "success" or "failed".
func (r *Renderer) StatusLine(item, status, detail string) {
	if r.EffectiveMode() == ModeMarkdown {
		line := "- " + item
		if status == "failed" {
			line += " (failed)"
		}
		if detail != "" {
			line += ": " + detail
		}
		r.Println(line)
		return
	}
	mark := r.styles.StatusSuccess.String()
	if status == "failed" {
		mark = r.styles.StatusFailed.String()
	}
	line := mark + " " + item
	if detail != "" {
		line += " " + r.styles.Muted.Render(detail)
	}
	r.Println(line)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
