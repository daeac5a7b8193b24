package solver

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/voterlookup/epic-extractor/internal/config"
)

// ExpectedGuessLength is the number of characters in every portal captcha.
const ExpectedGuessLength = 6

// Solver turns a captcha image into a text guess.
type Solver interface {
	Solve(ctx context.Context, image []byte) (string, error)
}

// ValidateGuess rejects guesses whose rune count differs from length.
func ValidateGuess(guess string, length int) error {
	if n := utf8.RuneCountInString(guess); n != length {
		return fmt.Errorf("guess %q has %d characters, expected %d", guess, n, length)
	}
	return nil
}

// New builds the solver selected by cfg.Type.
func New(cfg *config.SolverConfig) (Solver, error) {
	switch cfg.Type {
	case "command":
		return NewCommandSolver(cfg.Command, cfg.Args, cfg.Timeout.Duration()), nil
	case "http":
		return NewHTTPSolver(cfg.Endpoint, cfg.Timeout.Duration()), nil
	default:
		return nil, fmt.Errorf("unknown solver type %q", cfg.Type)
	}
}

func clean(out []byte) string {
	return strings.TrimSpace(string(out))
}
