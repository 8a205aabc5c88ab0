package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ImportRow is one line of a ticket import file.
type ImportRow struct {
	Line          int
	Name          string
	Type          string
	PhoneNumber   string
	Email         string
	Source        string
	OriginalEmail string
}

// NameRow is one line of a name correction file.
type NameRow struct {
	Line  int
	Name  string
	Email string
}

var (
	importColumns = []string{"name", "type", "phone_number", "email", "source"}
	nameColumns   = []string{"name", "email"}
)

type record struct {
	line   int
	fields map[string]string
}

// readRecords reads a CSV whose first row names the columns. Blank lines are
// skipped and every row must have as many fields as the header.
func readRecords(r io.Reader, required []string) ([]record, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv is empty: header row required")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	present := make(map[string]bool, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		columns[i] = strings.TrimSpace(name)
		present[columns[i]] = true
	}

	var missing []string
	for _, name := range required {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv header is missing columns: %s", strings.Join(missing, ", "))
	}

	var records []record
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		line, _ := reader.FieldPos(0)
		rec := record{line: line, fields: make(map[string]string, len(columns))}
		for i, name := range columns {
			rec.fields[name] = fields[i]
		}
		records = append(records, rec)
	}
	return records, nil
}

func ReadImportRows(r io.Reader) ([]ImportRow, error) {
	records, err := readRecords(r, importColumns)
	if err != nil {
		return nil, err
	}

	rows := make([]ImportRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, ImportRow{
			Line:          rec.line,
			Name:          rec.fields["name"],
			Type:          rec.fields["type"],
			PhoneNumber:   rec.fields["phone_number"],
			Email:         rec.fields["email"],
			Source:        rec.fields["source"],
			OriginalEmail: rec.fields["original_email"],
		})
	}
	return rows, nil
}

func ReadNameRows(r io.Reader) ([]NameRow, error) {
	records, err := readRecords(r, nameColumns)
	if err != nil {
		return nil, err
	}

	rows := make([]NameRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, NameRow{
			Line:  rec.line,
			Name:  rec.fields["name"],
			Email: rec.fields["email"],
		})
	}
	return rows, nil
}
