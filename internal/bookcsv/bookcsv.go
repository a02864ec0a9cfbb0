// Package bookcsv reads and writes book sheets as CSV.
package bookcsv

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/booksheet/booksheet-server/internal/domain"
	"github.com/booksheet/booksheet-server/internal/errors"
)

// ContentType is the media type used for exported sheets.
const ContentType = "text/csv; charset=utf-8"

const utf8BOM = "\uFEFF"

// Parse reads a CSV stream with a header row into raw rows keyed by header.
//
// Blank lines are skipped and ragged rows are tolerated: a row shorter than
// the header simply lacks the trailing keys, extra cells are dropped.
// Malformed quoting, read failures and a missing header yield a parse error.
//
// A lone carriage return inside a quoted cell is kept. A CRLF pair inside a
// quoted cell reads back as a single LF, as encoding/csv normalizes line
// breaks within quoted fields.
func Parse(r io.Reader) ([]domain.RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.Parsef("csv has no header row")
	}
	if err != nil {
		return nil, errors.Parse(err, "read csv header")
	}
	columns := make([]string, len(header))
	copy(columns, header)
	columns[0] = strings.TrimPrefix(columns[0], utf8BOM)

	var rows []domain.RawRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Parse(err, "read csv")
		}

		row := make(domain.RawRow, len(columns))
		for i, cell := range rec {
			if i >= len(columns) {
				break
			}
			row[columns[i]] = cell
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Write serializes records with the fixed five-column header, in slice order.
// IDs and modification flags are not exported. Records end in LF; carriage
// returns inside cells are written as-is so Parse can read them back.
func Write(w io.Writer, records []domain.Record) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(domain.Fields))
	for i, f := range domain.Fields {
		header[i] = string(f)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(domain.Fields))
	for i := range records {
		for j, f := range domain.Fields {
			row[j] = records[i].Value(f)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
