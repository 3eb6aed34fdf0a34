package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pix360/internal/job"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusKinds = [...]struct {
	tag   string
	color string
}{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

func (k statusKind) tag() string {
	if k < 0 || int(k) >= len(statusKinds) {
		return statusKinds[statusInfo].tag
	}
	return statusKinds[k].tag
}

func (k statusKind) color() string {
	if k < 0 || int(k) >= len(statusKinds) {
		return ""
	}
	return statusKinds[k].color
}

var stateColors = map[job.State]string{
	job.StatePending:   ansiYellow,
	job.StateCompleted: ansiGreen,
	job.StateFailed:    ansiRed,
}

var titleCaser = cases.Title(language.English)

// renderStatusLine formats "  label:   [TAG] message", padded so that tags
// line up across rows.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	body := "[" + kind.tag() + "]"
	if message != "" {
		body += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", body)
	return paint(line, kind.color(), colorize)
}

func stateLabel(state job.State, colorize bool) string {
	return paint(titleCaser.String(state.String()), stateColors[state], colorize)
}

func serverStatusLabel(status string) string {
	if status == "" {
		return "-"
	}
	return titleCaser.String(status)
}

func paint(text, color string, colorize bool) string {
	if !colorize || color == "" {
		return text
	}
	return color + text + ansiReset
}

func shouldColorize(w io.Writer) bool {
	return isTerminal(w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
