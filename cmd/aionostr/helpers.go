package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Hubmakerlabs/aionostr/pkg/context"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/gookit/color"
	"github.com/urfave/cli/v2"
)

type lineProcessingKey struct{}

// stdin is where piped input is read from, nil means nothing is piped.
var stdin = os.Stdin

func isPiped() bool {
	if stdin == nil {
		return false
	}
	stat, err := stdin.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice == 0
}

func getStdinLinesOrFirstArgument(c *cli.Context) chan string {
	// try the first argument
	target := c.Args().First()
	if target != "" {
		single := make(chan string, 1)
		single <- target
		close(single)
		return single
	}
	// try the stdin
	multi := make(chan string)
	if !writeStdinLinesOrNothing(multi) {
		close(multi)
	}
	return multi
}

func writeStdinLinesOrNothing(ch chan string) (hasStdinLines bool) {
	if !isPiped() {
		return false
	}
	go func() {
		scanner := bufio.NewScanner(stdin)
		scanner.Buffer(make([]byte, 16*1024), 256*1024)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				ch <- line
			}
		}
		close(ch)
	}()
	return true
}

// readStdinLine returns the first line of the piped input.
func readStdinLine() (line string, err error) {
	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 16*1024), 256*1024)
	for scanner.Scan() {
		if line = strings.TrimSpace(scanner.Text()); line != "" {
			return
		}
	}
	if err = scanner.Err(); err != nil {
		return
	}
	return "", io.ErrUnexpectedEOF
}

func lineProcessingError(c *cli.Context, msg string, args ...any) {
	c.Context = context.Value(c.Context, lineProcessingKey{}, true)
	fmt.Fprintln(c.App.ErrWriter, color.FgRed.Sprintf(msg, args...))
}

// exitIfLineProcessingError ends the program with status 123 when some input
// line could not be processed.
func exitIfLineProcessingError(c *cli.Context) error {
	if val, ok := c.Context.Value(lineProcessingKey{}).(bool); ok && val {
		return cli.Exit("", 123)
	}
	return nil
}

// printEvent writes the event as a JSON line, preceded on the error stream
// by the relay it came from when verbose.
func printEvent(c *cli.Context, ev *event.T, relay string, verbose bool) {
	if verbose && relay != "" {
		fmt.Fprintln(c.App.ErrWriter, color.FgCyan.Sprint(relay))
	}
	fmt.Fprintln(c.App.Writer, ev.String())
}
