package presenter

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func newTestPresenter() (*TerminalPresenter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &TerminalPresenter{output: &out, errorOutput: &errOut}, &out, &errOut
}

func TestTerminalPresenter_QuietSuppressesNonErrorOutput(t *testing.T) {
	color.NoColor = true
	p, out, errOut := newTestPresenter()
	p.SetQuiet(true)

	p.Success("ok")
	p.Warning("careful")
	p.Info("fyi")
	p.Section("Title")
	p.Separator()
	assert.Empty(t, out.String())

	p.Error(errors.New("boom"), "context")
	assert.Contains(t, errOut.String(), "boom")
}

func TestTerminalPresenter_WritesFormattedLines(t *testing.T) {
	color.NoColor = true
	p, out, _ := newTestPresenter()

	p.Success("done")
	p.Info("plain")
	assert.Contains(t, out.String(), "done")
	assert.Contains(t, out.String(), "plain")
}
