package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/MOYARU/a2ascan/internal/report"
)

var (
	Gray   = color.New(color.FgHiBlack)
	White  = color.New(color.FgHiWhite)
	Red    = color.New(color.FgHiRed)
	Green  = color.New(color.FgHiGreen)
	Yellow = color.New(color.FgHiYellow)
	Cyan   = color.New(color.FgCyan)

	High   = color.New(color.FgRed, color.Bold)
	Medium = color.New(color.FgYellow)
	Low    = color.New(color.FgBlue)
)

// ConfigureColor disables ANSI output when forced off or when stdout is not a terminal.
func ConfigureColor(disable bool) {
	if disable || !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}
}

func SeverityColor(s report.Severity) *color.Color {
	switch s {
	case report.SeverityHigh:
		return High
	case report.SeverityMedium:
		return Medium
	case report.SeverityLow:
		return Low
	default:
		return White
	}
}

func VerdictColor(v report.Verdict) *color.Color {
	switch v {
	case report.VerdictPass:
		return Green
	case report.VerdictWarn:
		return Yellow
	case report.VerdictFail:
		return Red
	default:
		return Gray
	}
}

// Banner renders the CLI header.
func Banner() string {
	return figure.NewFigure("A2ASCAN", "doom", true).String()
}

func PrintBanner(w io.Writer, version string) {
	_, _ = Cyan.Fprint(w, Banner())
	_, _ = Gray.Fprintf(w, "  agent card threat scanner v%s\n\n", version)
}

// WaitForCancel returns a context that is canceled on Ctrl+C or SIGTERM.
func WaitForCancel(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Errorf prints a red error line to w.
func Errorf(w io.Writer, format string, args ...any) {
	_, _ = Red.Fprintln(w, fmt.Sprintf(format, args...))
}
