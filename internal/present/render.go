package present

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/HendryAvila/aluconfig/internal/engine"
	"github.com/HendryAvila/aluconfig/internal/session"
)

// Renderer writes the configurator conversation to a terminal.
type Renderer struct {
	w     io.Writer
	eng   *engine.Engine
	color bool
}

// NewRenderer creates a Renderer on w. Colour is used only when w is a
// terminal and noColor is false.
func NewRenderer(w io.Writer, eng *engine.Engine, noColor bool) *Renderer {
	useColor := false
	if f, ok := w.(*os.File); ok && !noColor {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Renderer{w: w, eng: eng, color: useColor}
}

func (r *Renderer) paint(fn func(string, ...interface{}) string, s string) string {
	if !r.color {
		return s
	}
	return fn("%s", s)
}

// Line prints one chat bubble.
func (r *Renderer) Line(l Line) {
	if l.Role == session.RoleUser {
		fmt.Fprintf(r.w, "%s %s\n", r.paint(color.GreenString, "  você ›"), l.Text)
		return
	}
	fmt.Fprintf(r.w, "%s %s\n", r.paint(color.CyanString, "aluconfig ›"), l.Text)
}

// Outcome prints the replayed conversation for sel followed by the
// numbered options or the products found.
func (r *Renderer) Outcome(sel engine.Selections, out engine.Outcome) {
	fmt.Fprintln(r.w)
	for _, l := range Replay(r.eng, sel, out) {
		r.Line(l)
	}
	fmt.Fprintln(r.w)

	if out.PendingQuestion != nil {
		r.Options(out.PendingQuestion.Options)
		return
	}
	r.Products(out)
}

// Options prints a numbered option list, starting at 1.
func (r *Renderer) Options(opts []engine.Option) {
	for i, o := range opts {
		num := r.paint(color.YellowString, fmt.Sprintf("%2d)", i+1))
		fmt.Fprintf(r.w, "  %s %s\n", num, o.Label)
	}
}

// Products prints the final candidates with their chips and links.
func (r *Renderer) Products(out engine.Outcome) {
	cat := r.eng.Catalog()
	for _, p := range out.CandidateProducts {
		fmt.Fprintf(r.w, "  %s\n", r.paint(color.New(color.Bold).Sprintf, p.ID))
		fmt.Fprintf(r.w, "     %s\n", r.paint(color.HiBlackString, strings.Join(r.eng.Chips(p), " · ")))
		fmt.Fprintf(r.w, "     %s\n", cat.ProductURL(p))
	}
}

// Answers prints the answered facets, numbered for the back command.
func (r *Renderer) Answers(sel engine.Selections) {
	for i, a := range r.eng.Answered(sel) {
		fmt.Fprintf(r.w, "  %s %s: %s\n", r.paint(color.YellowString, fmt.Sprintf("b %d", i+1)), a.Facet.Title, a.Label)
	}
}

// Notice prints a status line such as the session id or an offline warning.
func (r *Renderer) Notice(format string, args ...any) {
	fmt.Fprintln(r.w, r.paint(color.HiBlackString, fmt.Sprintf(format, args...)))
}

// Warn prints a problem the user can act on.
func (r *Renderer) Warn(format string, args ...any) {
	fmt.Fprintln(r.w, r.paint(color.YellowString, fmt.Sprintf(format, args...)))
}
