package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/dhcgn/mail-export/model"
)

// FileName is the contact report written next to the exported documents.
const FileName = "client_info.csv"

// Columns is the fixed header row, one title per ReportRow field in order.
var Columns = []string{"From", "Date", "ClientName", "Company", "Website", "Phone"}

// WriteError wraps a report serialization or filesystem failure. It does not
// invalidate artifacts the run already produced.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write report %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Write serializes rows to a CSV file at path, header first, rows in input
// order. Calling it again for the same path overwrites the previous report.
func Write(path string, rows []model.ReportRow) error {
	file, err := os.Create(path)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(Columns); err != nil {
		file.Close()
		return &WriteError{Path: path, Err: err}
	}

	for _, row := range rows {
		record := []string{
			row.From,
			formatDate(row.Date),
			row.Contact.SenderName,
			row.Contact.Company,
			row.Contact.Website,
			row.Contact.Phone,
		}
		if err := writer.Write(record); err != nil {
			file.Close()
			return &WriteError{Path: path, Err: err}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return &WriteError{Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
