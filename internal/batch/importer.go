// Package batch holds the offline bulk jobs that write attendee rows straight
// to the store: ticket import and name correction.
//
// Both jobs run a whole file inside one transaction. Without execute the
// transaction is rolled back after every row has been staged, so a dry run
// reports exactly what an execute run would do and leaves nothing behind.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/farellandr/confpass/internal/helpers"
	"github.com/farellandr/confpass/internal/models"
	"github.com/farellandr/confpass/internal/store"
)

// errDryRun rolls back a completed dry run.
var errDryRun = errors.New("dry run")

const defaultReferenceAttempts = 5

type ImportSummary struct {
	Created  int
	Skipped  int
	Executed bool
}

type Importer struct {
	Store store.AttendeeStore
	Out   io.Writer

	// NewReference generates candidate refs. Defaults to helpers.NewReference.
	NewReference func() (string, error)
	// ReferenceAttempts bounds retries when a generated ref is already taken.
	ReferenceAttempts int
}

func NewImporter(s store.AttendeeStore, out io.Writer) *Importer {
	return &Importer{
		Store:             s,
		Out:               out,
		NewReference:      helpers.NewReference,
		ReferenceAttempts: defaultReferenceAttempts,
	}
}

// Run stages every row and commits only when execute is set. Any error rolls
// back the whole file.
func (im *Importer) Run(ctx context.Context, rows []ImportRow, execute bool) (ImportSummary, error) {
	summary := ImportSummary{Executed: execute}
	mode := modeLabel(execute)

	err := im.Store.Transaction(ctx, func(tx store.AttendeeStore) error {
		for _, row := range rows {
			if row.Email == "" {
				fmt.Fprintf(im.Out, "Row on line %d for %s has no email. Skipping.\n", row.Line, row.Name)
				summary.Skipped++
				continue
			}

			emails := []string{row.Email}
			if row.OriginalEmail != "" && row.OriginalEmail != row.Email {
				emails = append(emails, row.OriginalEmail)
			}

			existing, err := tx.FindByAnyEmail(ctx, emails...)
			if err == nil {
				fmt.Fprintf(im.Out, "Ticket for %s (%s) already exists with ref %s. Skipping.\n", row.Name, row.Email, existing.Ref)
				summary.Skipped++
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("line %d: check existing tickets: %w", row.Line, err)
			}

			ref, err := im.reference(ctx, tx)
			if err != nil {
				return fmt.Errorf("line %d: %w", row.Line, err)
			}

			fmt.Fprintf(im.Out, "Creating ticket for %s (%s) with ref %s.\n", row.Name, row.Email, ref)
			attendee := models.Attendee{
				Ref:           ref,
				Name:          row.Name,
				Type:          row.Type,
				PhoneNumber:   row.PhoneNumber,
				Email:         row.Email,
				Source:        row.Source,
				OriginalEmail: row.Email,
			}
			if err := tx.Insert(ctx, &attendee); err != nil {
				return fmt.Errorf("line %d: insert %s: %w", row.Line, ref, err)
			}
			fmt.Fprintf(im.Out, "%s Insert row for %s (%s) with ref %s.\n", mode, row.Name, row.Email, ref)
			summary.Created++
		}

		fmt.Fprintln(im.Out, "\n=====")
		fmt.Fprintf(im.Out, "%d tickets to be created, %d tickets skipped because they would be duplicates.\n",
			summary.Created, summary.Skipped)

		if !execute {
			return errDryRun
		}
		return nil
	})

	switch {
	case errors.Is(err, errDryRun):
		fmt.Fprintln(im.Out, "Dry run. No rows were actually inserted.")
		return summary, nil
	case err != nil:
		fmt.Fprintln(im.Out, "Rolling back changes. No rows were inserted.")
		return summary, err
	}

	fmt.Fprintln(im.Out, "All rows inserted successfully.")
	return summary, nil
}

func (im *Importer) reference(ctx context.Context, tx store.AttendeeStore) (string, error) {
	attempts := im.ReferenceAttempts
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		ref, err := im.NewReference()
		if err != nil {
			return "", fmt.Errorf("generate reference: %w", err)
		}
		taken, err := tx.RefExists(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("check reference %s: %w", ref, err)
		}
		if !taken {
			return ref, nil
		}
	}
	return "", fmt.Errorf("no free reference after %d attempts", attempts)
}

func modeLabel(execute bool) string {
	if execute {
		return "ACTION:"
	}
	return "DRYRUN:"
}
