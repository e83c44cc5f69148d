package terminal

import (
	"errors"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// Confirm asks a yes/no question on the terminal and returns the user's
// choice. Unrecognized input re-asks; Ctrl+C and EOF count as no.
func Confirm(question string) (bool, error) {
	rl, err := readline.New(question + " [y/n]: ")
	if err != nil {
		return false, err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}
