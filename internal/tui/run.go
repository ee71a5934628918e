package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/mileage-audit/internal/model"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrNothingToReview is returned when there are no scored rows.
var ErrNothingToReview = errors.New("no scored claims to review")

// RunReview opens the review table and blocks until the user quits or ctx
// is cancelled.
func RunReview(ctx context.Context, rows []model.ScoredAggregate, cfg Config) error {
	if len(rows) == 0 {
		return ErrNothingToReview
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.Input != nil {
		opts = append(opts, tea.WithInput(cfg.Input))
	}
	if cfg.Output != nil {
		opts = append(opts, tea.WithOutput(cfg.Output))
	} else {
		opts = append(opts, tea.WithAltScreen())
	}

	p := tea.NewProgram(NewModel(rows, cfg), opts...)
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("review UI: %w", err)
	}
	return nil
}
