package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusStyles = map[statusKind]struct {
	tag    string
	colour text.Colors
}{
	statusInfo:  {"INFO", text.Colors{text.FgBlue}},
	statusOK:    {"OK", text.Colors{text.FgGreen}},
	statusWarn:  {"WARN", text.Colors{text.FgYellow}},
	statusError: {"ERROR", text.Colors{text.FgRed}},
}

// panel prints aligned "label: [TAG] message" lines under "== title =="
// headers, coloured only when writing to a terminal.
type panel struct {
	out    io.Writer
	colour bool
}

func newPanel(out io.Writer) panel {
	return panel{out: out, colour: isTerminalWriter(out)}
}

func (p panel) header(title string) {
	heading := "== " + strings.TrimSpace(title) + " =="
	for _, s := range []string{heading, strings.Repeat("-", len(heading))} {
		fmt.Fprintln(p.out, p.paint(text.Colors{text.FgBlue}, s))
	}
}

func (p panel) line(label string, kind statusKind, message string) {
	style := statusStyles[kind]
	s := fmt.Sprintf("  %-20s [%s]", label+":", style.tag)
	if message != "" {
		s += " " + message
	}
	fmt.Fprintln(p.out, p.paint(style.colour, s))
}

// item prints an indented bullet beneath the previous line.
func (p panel) item(message string) {
	fmt.Fprintf(p.out, "    - %s\n", message)
}

func (p panel) paint(colours text.Colors, s string) string {
	if !p.colour {
		return s
	}
	return colours.Sprint(s)
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// jobStatusKind colours job, collection and qualification states.
func jobStatusKind(status string) statusKind {
	switch status {
	case "completed", "published", "qualified", "done":
		return statusOK
	case "partial", "paused", "pending", "queued", "draft":
		return statusWarn
	case "failed", "cancelled", "insufficient":
		return statusError
	}
	return statusInfo
}
