package batch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/farellandr/confpass/internal/store"
)

type NameSummary struct {
	Updated  int
	Missing  int
	Executed bool
}

// NameCorrector rewrites attendee names matched by exact email.
type NameCorrector struct {
	Store store.AttendeeStore
	Out   io.Writer
}

func NewNameCorrector(s store.AttendeeStore, out io.Writer) *NameCorrector {
	return &NameCorrector{Store: s, Out: out}
}

func (nc *NameCorrector) Run(ctx context.Context, rows []NameRow, execute bool) (NameSummary, error) {
	summary := NameSummary{Executed: execute}
	mode := modeLabel(execute)

	err := nc.Store.Transaction(ctx, func(tx store.AttendeeStore) error {
		for _, row := range rows {
			existing, err := tx.FindByEmail(ctx, row.Email)
			if errors.Is(err, store.ErrNotFound) {
				fmt.Fprintf(nc.Out, "No ticket found for %s. Skipping.\n", row.Email)
				summary.Missing++
				continue
			}
			if err != nil {
				return fmt.Errorf("line %d: find ticket for %s: %w", row.Line, row.Email, err)
			}

			affected, err := tx.UpdateFields(ctx, existing.Ref, map[string]any{"name": row.Name})
			if err != nil {
				return fmt.Errorf("line %d: update %s: %w", row.Line, existing.Ref, err)
			}
			if affected != 1 {
				return fmt.Errorf("line %d: update %s affected %d rows", row.Line, existing.Ref, affected)
			}
			fmt.Fprintf(nc.Out, "%s Update name for %s to %s.\n", mode, row.Email, row.Name)
			summary.Updated++
		}

		fmt.Fprintln(nc.Out, "\n=====")
		fmt.Fprintf(nc.Out, "%d names to be updated, %d emails without a ticket.\n", summary.Updated, summary.Missing)

		if !execute {
			return errDryRun
		}
		return nil
	})

	switch {
	case errors.Is(err, errDryRun):
		fmt.Fprintln(nc.Out, "Dry run. No rows were actually updated.")
		return summary, nil
	case err != nil:
		fmt.Fprintln(nc.Out, "Rolling back changes. No rows were updated.")
		return summary, err
	}

	fmt.Fprintln(nc.Out, "All rows updated successfully.")
	return summary, nil
}
