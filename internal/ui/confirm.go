package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Confirm shows a warning box and asks the user to type "yes". It
// returns false on any other answer or a read error.
func Confirm(in io.Reader, out io.Writer, title string, warnings []string) bool {
	width := GetTerminalWidth()

	lines := []string{"", WarningTitleStyle.Render(WarningMarker + "  " + title), ""}
	for _, w := range warnings {
		lines = append(lines, ValueStyle.Render("• "+w))
	}
	lines = append(lines, "")

	box := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(WarningColor).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
	fmt.Fprintln(out, box)

	fmt.Fprint(out, WarningTitleStyle.Render(`Type "yes" to continue: `))
	answer, err := bufio.NewReader(in).ReadString('\n')
	fmt.Fprintln(out)
	if err != nil && answer == "" {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(answer), "yes") {
		return true
	}
	fmt.Fprintln(out, NoteStyle.Render("Cancelled."))
	return false
}
