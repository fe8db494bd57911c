// Package presenter provides consistent CLI output for the lifecycled demo
// binary: colored success/warning/error/info lines and a quiet mode, in the
// same shape the teacher's CLI uses for all of its commands.
package presenter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Presenter is the CLI output surface for lifecycled's subcommands.
type Presenter interface {
	Error(err error, context string)
	Success(message string)
	Warning(message string)
	Info(message string)
	Section(title string)
	Separator()
	SetQuiet(quiet bool)
}

// TerminalPresenter writes colored output to an io.Writer pair.
type TerminalPresenter struct {
	output      io.Writer
	errorOutput io.Writer
	quiet       bool
}

// New creates a TerminalPresenter writing to stdout/stderr.
func New() *TerminalPresenter {
	return &TerminalPresenter{output: os.Stdout, errorOutput: os.Stderr}
}

func (p *TerminalPresenter) Error(err error, context string) {
	if err == nil {
		return
	}
	errColor := color.New(color.FgRed, color.Bold)
	if context != "" {
		errColor.Fprintf(p.errorOutput, "[ERROR] %s: %v\n", context, err)
		return
	}
	errColor.Fprintf(p.errorOutput, "[ERROR] %v\n", err)
}

func (p *TerminalPresenter) Success(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgGreen, color.Bold).Fprintf(p.output, "✓ %s\n", message)
}

func (p *TerminalPresenter) Warning(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgYellow, color.Bold).Fprintf(p.output, "⚠ %s\n", message)
}

func (p *TerminalPresenter) Info(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.output, "%s\n", message)
}

func (p *TerminalPresenter) Section(title string) {
	if p.quiet {
		return
	}
	headerColor := color.New(color.Bold)
	headerColor.Fprintf(p.output, "%s\n", title)
	headerColor.Fprintf(p.output, "%s\n", strings.Repeat("-", len(title)))
}

func (p *TerminalPresenter) Separator() {
	if p.quiet {
		return
	}
	color.New(color.Faint).Fprintf(p.output, "%s\n", strings.Repeat("-", 60))
}

func (p *TerminalPresenter) SetQuiet(quiet bool) { p.quiet = quiet }

var defaultPresenter = New()

func Error(err error, context string) { defaultPresenter.Error(err, context) }
func Success(message string)          { defaultPresenter.Success(message) }
func Warning(message string)          { defaultPresenter.Warning(message) }
func Info(message string)             { defaultPresenter.Info(message) }
func Section(title string)            { defaultPresenter.Section(title) }
func Separator()                      { defaultPresenter.Separator() }
func SetQuiet(quiet bool)             { defaultPresenter.SetQuiet(quiet) }
