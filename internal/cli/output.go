package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// printer writes command output, styled only when w is a terminal.
type printer struct {
	w       io.Writer
	title   lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	subtle  lipgloss.Style
	colored bool
}

func newPrinter(w io.Writer) *printer {
	p := &printer{
		w:      w,
		title:  lipgloss.NewStyle(),
		ok:     lipgloss.NewStyle(),
		warn:   lipgloss.NewStyle(),
		fail:   lipgloss.NewStyle(),
		subtle: lipgloss.NewStyle(),
	}
	if !useColor(w) {
		return p
	}
	p.colored = true
	p.title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	p.ok = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	p.warn = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	p.fail = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	p.subtle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	return p
}

// useColor reports whether w is a terminal and color was not turned off
// with --no-color or NO_COLOR.
func useColor(w io.Writer) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) blank() {
	fmt.Fprintln(p.w)
}

func (p *printer) heading(format string, args ...any) {
	fmt.Fprintln(p.w, p.title.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) success(format string, args ...any) {
	fmt.Fprintln(p.w, p.ok.Render("✓ "+fmt.Sprintf(format, args...)))
}

func (p *printer) warning(format string, args ...any) {
	fmt.Fprintln(p.w, p.warn.Render("! "+fmt.Sprintf(format, args...)))
}

func (p *printer) failure(format string, args ...any) {
	fmt.Fprintln(p.w, p.fail.Render("✗ "+fmt.Sprintf(format, args...)))
}

func (p *printer) note(format string, args ...any) {
	fmt.Fprintln(p.w, p.subtle.Render(fmt.Sprintf(format, args...)))
}
