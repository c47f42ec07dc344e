// internal/speech/speaker.go

// Package speech implements the Speaker contract by shelling out to a
// text-to-speech command (say, espeak, piper, ...). Synthesis internals
// stay behind the command; one process is spawned per utterance and killed
// when the utterance is cancelled.
package speech

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandSpeaker speaks by running a configured command with the utterance
// text appended as the final argument.
type CommandSpeaker struct {
	command string
	args    []string
}

// NewCommandSpeaker parses a command line like "espeak -s 150" into a
// CommandSpeaker.
func NewCommandSpeaker(commandLine string) (*CommandSpeaker, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, fmt.Errorf("speaker command is empty")
	}
	return &CommandSpeaker{command: fields[0], args: fields[1:]}, nil
}

// Ping verifies the command exists on PATH. A missing engine is fatal to a
// session, so this runs before any item is touched.
func (s *CommandSpeaker) Ping() error {
	if _, err := exec.LookPath(s.command); err != nil {
		return fmt.Errorf("speech command %q not found: %w", s.command, err)
	}
	return nil
}

// Speak runs the command for one utterance and blocks until it exits or
// the context is cancelled. It returns exactly once per call; cancellation
// kills the process and reports the context error.
func (s *CommandSpeaker) Speak(ctx context.Context, text string) error {
	args := append(append([]string{}, s.args...), text)
	cmd := exec.CommandContext(ctx, s.command, args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("speech command failed: %w", err)
	}
	return nil
}
