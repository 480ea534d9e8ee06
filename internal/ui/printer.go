package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Field is one labelled value. Slices of Field keep their order, unlike
// maps.
type Field struct {
	Key   string
	Value string
}

// Printer writes styled output for the CLI commands.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a Printer for w. A nil w writes to stdout.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w, width: GetTerminalWidth()}
}

// SetWidth overrides the detected terminal width.
func (p *Printer) SetWidth(width int) *Printer {
	p.width = clampWidth(width)
	return p
}

// Width returns the rendering width.
func (p *Printer) Width() int { return p.width }

// Println writes content with a newline.
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Header prints a command banner with its parameters.
func (p *Printer) Header(title, command string, params []Field) {
	p.Println(RenderHeader(title, command, params, p.width))
}

// Success prints a success box.
func (p *Printer) Success(title string, details []Field) {
	p.Println(renderResult(SuccessMarker+"  "+title, SuccessTitleStyle, SuccessColor, nil, details, p.width))
}

// Warning prints a warning box.
func (p *Printer) Warning(title string, details []Field) {
	p.Println(renderResult(WarningMarker+"  "+title, WarningTitleStyle, WarningColor, nil, details, p.width))
}

// Failure prints an error box with optional hints.
func (p *Printer) Failure(title string, err error, hints []string) {
	var details []Field
	for _, h := range hints {
		details = append(details, Field{Value: "• " + h})
	}
	p.Println(renderResult(FailureMarker+"  "+title, ErrorTitleStyle, ErrorColor, err, details, p.width))
}

// Fields prints aligned key/value lines.
func (p *Printer) Fields(fields []Field) {
	p.Println(RenderFields(fields))
}

// Table prints rows under a header line.
func (p *Printer) Table(header []string, rows [][]string) {
	p.Println(RenderTable(header, rows))
}

// RenderHeader renders a command banner.
func RenderHeader(title, command string, params []Field, width int) string {
	top := lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render(strings.ToUpper(title)),
		SubtitleStyle.Render(command),
	)
	content := top
	if len(params) > 0 {
		content = lipgloss.JoinVertical(lipgloss.Left,
			top,
			Divider(width-6),
			lipgloss.NewStyle().PaddingLeft(2).Render(RenderFields(params)),
		)
	}
	return BoxStyle(width, PrimaryColor).Render(content)
}

// RenderFields renders aligned key/value lines. A field without a key
// renders its value alone.
func RenderFields(fields []Field) string {
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Key == "" {
			lines = append(lines, ValueStyle.Render(f.Value))
			continue
		}
		lines = append(lines, KeyStyle.Render(f.Key+":")+" "+ValueStyle.Render(f.Value))
	}
	return strings.Join(lines, "\n")
}

// RenderTable renders rows in padded columns.
func RenderTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	pad := func(cells []string) string {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	lines := []string{TableHeaderStyle.Render(pad(header))}
	for _, row := range rows {
		lines = append(lines, pad(row))
	}
	return strings.Join(lines, "\n")
}

func renderResult(title string, titleStyle lipgloss.Style, color lipgloss.Color, err error, details []Field, width int) string {
	lines := []string{"", titleStyle.Render(title), ""}
	if err != nil {
		lines = append(lines, ErrorMessageStyle.Render("Error: "+err.Error()), "")
	}
	if len(details) > 0 {
		lines = append(lines, RenderFields(details), "")
	}
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}
