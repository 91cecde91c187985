package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
)

var errInterrupted = errors.New("interrupted")

func interactive() bool {
	return readline.IsTerminal(int(os.Stdin.Fd()))
}

// prompt asks for a value and returns def for an empty answer or end of input.
func prompt(label, def string) (string, error) {
	text := label + ": "
	if def != "" {
		text = fmt.Sprintf("%s (default: %s): ", label, def)
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          text,
		InterruptPrompt: "^C",
		EOFPrompt:       "",
	})
	if err != nil {
		return "", fmt.Errorf("initializing readline: %w", err)
	}
	defer func() {
		_ = rl.Close()
	}()

	line, err := rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", errInterrupted
	} else if errors.Is(err, io.EOF) {
		return def, nil
	} else if err != nil {
		return "", err
	}
	if line = strings.TrimSpace(line); line != "" {
		return line, nil
	}
	return def, nil
}

func confirm(label string) (bool, error) {
	answer, err := prompt(label+" [y/N]", "")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// resolve returns value when set, otherwise prompts on a terminal or falls back to def.
func resolve(value, label, def string) (string, error) {
	if value != "" {
		return value, nil
	}
	if !interactive() {
		return def, nil
	}
	return prompt(label, def)
}
