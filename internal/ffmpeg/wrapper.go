package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// maxStderrLines is the number of recent stderr lines kept per command.
const maxStderrLines = 100

// Command represents an FFmpeg command to execute.
type Command struct {
	Binary    string
	Args      []string
	Input     string
	Output    string
	Overwrite bool

	// Stderr capture
	stderrHandler func(line string)
	stderrLines   []string
	stderrMu      sync.RWMutex
}

// Result describes a finished FFmpeg run.
type Result struct {
	// ExitCode is the process exit status, or -1 when the process did not exit normally.
	ExitCode int
	Duration time.Duration
}

// Success reports whether the process exited with status 0.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}

// CommandBuilder builds FFmpeg commands with a fluent API.
type CommandBuilder struct {
	binary        string
	input         string
	outputArgs    []string
	output        string
	overwrite     bool
	stderrHandler func(line string)
}

// NewCommandBuilder creates a new FFmpeg command builder.
func NewCommandBuilder(ffmpegPath string) *CommandBuilder {
	return &CommandBuilder{
		binary: ffmpegPath,
	}
}

// Overwrite enables output file overwriting.
func (b *CommandBuilder) Overwrite() *CommandBuilder {
	b.overwrite = true
	return b
}

// Input sets the input source.
func (b *CommandBuilder) Input(input string) *CommandBuilder {
	b.input = input
	return b
}

// Seek sets the output seek position in seconds. Placed after -i, FFmpeg
// decodes up to the position, which is frame accurate.
func (b *CommandBuilder) Seek(seconds int) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-ss", strconv.Itoa(seconds))
	return b
}

// Frames limits the number of video frames written.
func (b *CommandBuilder) Frames(n int) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-vframes", strconv.Itoa(n))
	return b
}

// Format sets the output container format.
func (b *CommandBuilder) Format(format string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-f", format)
	return b
}

// Size sets the output frame size as WxH.
func (b *CommandBuilder) Size(size string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-s", size)
	return b
}

// Output sets the output destination.
func (b *CommandBuilder) Output(output string) *CommandBuilder {
	b.output = output
	return b
}

// StderrHandler registers fn to receive every stderr line as it is read.
func (b *CommandBuilder) StderrHandler(fn func(line string)) *CommandBuilder {
	b.stderrHandler = fn
	return b
}

// Build builds the command.
func (b *CommandBuilder) Build() *Command {
	var args []string

	if b.overwrite {
		args = append(args, "-y")
	}
	args = append(args, "-i", b.input)

	// Output args
	args = append(args, b.outputArgs...)

	// Output
	args = append(args, b.output)

	return &Command{
		Binary:        b.binary,
		Args:          args,
		Input:         b.input,
		Output:        b.output,
		Overwrite:     b.overwrite,
		stderrHandler: b.stderrHandler,
		stderrLines:   make([]string, 0, maxStderrLines),
	}
}

// String returns the command as a string.
func (c *Command) String() string {
	return c.Binary + " " + strings.Join(c.Args, " ")
}

// Run executes the command and waits for it to exit. A non-zero exit status
// is reported in the Result, not as an error; err is set only when the
// process could not be started or waited for. Cancelling ctx kills the process.
func (c *Command) Run(ctx context.Context) (*Result, error) {
	cmd := exec.CommandContext(ctx, c.Binary, c.Args...)
	started := time.Now()

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("getting stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting ffmpeg: %w", err)
	}

	// The pipe must be drained before Wait closes it.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.readStderr(stderr)
	}()
	wg.Wait()

	waitErr := cmd.Wait()
	result := &Result{Duration: time.Since(started)}

	if waitErr == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	return nil, fmt.Errorf("waiting for ffmpeg: %w", waitErr)
}

// readStderr records stderr lines and forwards them to the handler.
func (c *Command) readStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	// FFmpeg progress output uses carriage returns without newlines.
	scanner.Split(scanLinesOrCR)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		c.stderrMu.Lock()
		if len(c.stderrLines) >= maxStderrLines {
			c.stderrLines = c.stderrLines[1:]
		}
		c.stderrLines = append(c.stderrLines, line)
		c.stderrMu.Unlock()

		if c.stderrHandler != nil {
			c.stderrHandler(line)
		}
	}
}

// scanLinesOrCR is a bufio.SplitFunc that splits on \n or \r.
func scanLinesOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// RecentStderr returns the most recent stderr lines, oldest first.
func (c *Command) RecentStderr() []string {
	c.stderrMu.RLock()
	defer c.stderrMu.RUnlock()

	lines := make([]string, len(c.stderrLines))
	copy(lines, c.stderrLines)
	return lines
}
