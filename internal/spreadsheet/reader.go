// Package spreadsheet reads identifier lists out of uploaded workbooks and
// renders stored voters back into one.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/thoas/go-funk"
	"github.com/xuri/excelize/v2"
)

const (
	DefaultColumn = "epic_number"

	// minIdentifierLength filters header leftovers when no header matched.
	minIdentifierLength = 6
)

var (
	ErrNoIdentifiers     = errors.New("no EPIC numbers found in file")
	ErrUnsupportedFormat = errors.New("invalid file format. Only Excel (.xlsx, .xls) or CSV files are supported")
)

var headerTokens = []string{"epic", "epic_number", "epic number", "epic no"}

// Supported reports whether filename has an extension ParseIdentifiers reads.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls", ".csv":
		return true
	}
	return false
}

// ParseIdentifiers returns the values of column, in file order. When no
// header cell equals column, the first column is read instead, without a
// header, dropping values that look like a header or are too short to be an
// identifier.
func ParseIdentifiers(filename string, content []byte, column string) ([]string, error) {
	if !Supported(filename) {
		return nil, ErrUnsupportedFormat
	}
	if column == "" {
		column = DefaultColumn
	}

	var (
		rows [][]string
		err  error
	)
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		rows, err = readCSV(content)
	} else {
		rows, err = readWorkbook(content)
	}
	if err != nil {
		return nil, err
	}

	identifiers := fromHeader(rows, column)
	if identifiers == nil {
		identifiers = fromFirstColumn(rows)
	}
	if len(identifiers) == 0 {
		return nil, ErrNoIdentifiers
	}
	return identifiers, nil
}

func readCSV(content []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// readWorkbook reads the first sheet.
func readWorkbook(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// fromHeader returns nil when the header row has no cell named column.
func fromHeader(rows [][]string, column string) []string {
	if len(rows) == 0 {
		return nil
	}
	idx := -1
	for i, cell := range rows[0] {
		if strings.TrimSpace(cell) == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	identifiers := []string{}
	for _, row := range rows[1:] {
		if idx >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[idx]); v != "" {
			identifiers = append(identifiers, v)
		}
	}
	return identifiers
}

func fromFirstColumn(rows [][]string) []string {
	values := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if v := strings.TrimSpace(row[0]); v != "" {
			values = append(values, v)
		}
	}

	return funk.Filter(values, func(v string) bool {
		return len(v) >= minIdentifierLength && !funk.Contains(headerTokens, strings.ToLower(v))
	}).([]string)
}
