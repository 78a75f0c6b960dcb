package ports

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
)

// Terminal is the standard-stream Interactor used by the CLI. The spinner
// is rendered as plain status lines so output stays usable when piped.
type Terminal struct {
	out io.Writer
	err io.Writer
}

// NewTerminal returns an Interactor bound to stdout and stderr.
func NewTerminal() *Terminal {
	return &Terminal{out: os.Stdout, err: os.Stderr}
}

// NewTerminalWithWriters binds the interactor to custom writers, letting
// tests capture what a command printed.
func NewTerminalWithWriters(out, errOut io.Writer) *Terminal {
	return &Terminal{out: out, err: errOut}
}

func (t *Terminal) Output(message string) {
	fmt.Fprintln(t.out, message)
}

func (t *Terminal) Warning(message string) {
	fmt.Fprintf(t.err, "warning: %s\n", message)
}

func (t *Terminal) Error(message string, err error) {
	if err != nil {
		fmt.Fprintf(t.err, "error: %s: %v\n", message, err)
		return
	}
	fmt.Fprintf(t.err, "error: %s\n", message)
}

func (t *Terminal) Table(header []string, rows [][]string) {
	table := tablewriter.NewWriter(t.out)
	table.SetHeader(header)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.AppendBulk(rows)
	table.Render()
}

func (t *Terminal) StartSpinner(message string) {
	fmt.Fprintf(t.out, "%s...\n", message)
}

func (t *Terminal) StopSpinner(success bool, message string) {
	if success {
		fmt.Fprintf(t.out, "done: %s\n", message)
		return
	}
	fmt.Fprintf(t.out, "failed: %s\n", message)
}
