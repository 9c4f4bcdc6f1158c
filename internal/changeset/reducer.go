// Package changeset turns change-data-capture CSV exports into reviewable diffs.
//
// A change set is an ordered list of rows tagged by a _change_type column. Inserts and
// deletes stand alone. An update is written as a preimage row immediately followed by
// its postimage row; the reducer folds each pair into the postimage with every changed
// cell rendered as "~~old~~ new".
package changeset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"ingestion-portal/pkg/errors"
)

const (
	ChangeTypeColumn    = "_change_type"
	CommitVersionColumn = "_commit_version"
	CommitTimeColumn    = "_commit_timestamp"
)

type ChangeType string

const (
	Insert          ChangeType = "insert"
	UpdatePreimage  ChangeType = "update_preimage"
	UpdatePostimage ChangeType = "update_postimage"
	Delete          ChangeType = "delete"
)

// Row is one display row. Values are keyed by column name; Columns on the owning Diff
// gives their order.
type Row struct {
	ChangeType ChangeType        `json:"change_type"`
	Values     map[string]string `json:"values"`
}

type Diff struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

type Summary struct {
	Inserts int `json:"rows_added"`
	Updates int `json:"rows_updated"`
	Deletes int `json:"rows_deleted"`
}

// Total is the number of rows Reduce emits for the same input.
func (s Summary) Total() int {
	return s.Inserts + s.Updates + s.Deletes
}

// Table is a parsed change-set file: a header and its records in file order.
type Table struct {
	Header  []string
	Records [][]string
}

// Read parses a change-set CSV. Every record must have as many fields as the header.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", errors.ErrMalformedChangeSet)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedChangeSet, err)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedChangeSet, err)
	}

	return &Table{Header: header, Records: records}, nil
}

// Reduce folds update pairs and strips the change type column. File order is kept.
func Reduce(t *Table) (*Diff, error) {
	typeIdx, err := changeTypeIndex(t.Header)
	if err != nil {
		return nil, err
	}

	columns := make([]string, 0, len(t.Header)-1)
	for i, col := range t.Header {
		if i != typeIdx {
			columns = append(columns, col)
		}
	}

	diff := &Diff{Columns: columns, Rows: make([]Row, 0, len(t.Records))}
	err = walk(t.Records, typeIdx, func(ct ChangeType, pre, post []string) {
		if ct != UpdatePostimage {
			diff.Rows = append(diff.Rows, Row{ChangeType: ct, Values: values(t.Header, typeIdx, post)})
			return
		}
		diff.Rows = append(diff.Rows, Row{ChangeType: ct, Values: merge(t.Header, typeIdx, pre, post)})
	})
	if err != nil {
		return nil, err
	}

	return diff, nil
}

// Summarize counts changes with the same pairing rules as Reduce, without building rows.
func Summarize(t *Table) (Summary, error) {
	typeIdx, err := changeTypeIndex(t.Header)
	if err != nil {
		return Summary{}, err
	}

	var s Summary
	err = walk(t.Records, typeIdx, func(ct ChangeType, _, _ []string) {
		switch ct {
		case Insert:
			s.Inserts++
		case Delete:
			s.Deletes++
		case UpdatePostimage:
			s.Updates++
		}
	})
	if err != nil {
		return Summary{}, err
	}
	return s, nil
}

// walk visits each logical change in order. For updates, emit receives the preimage and
// the postimage with ct == UpdatePostimage; otherwise pre is nil.
func walk(records [][]string, typeIdx int, emit func(ct ChangeType, pre, post []string)) error {
	for i := 0; i < len(records); i++ {
		rec := records[i]
		if typeIdx >= len(rec) {
			return malformed(i, "missing %s value", ChangeTypeColumn)
		}

		switch ct := ChangeType(rec[typeIdx]); ct {
		case Insert, Delete:
			emit(ct, nil, rec)
		case UpdatePreimage:
			if i+1 >= len(records) {
				return malformed(i, "update_preimage has no matching update_postimage")
			}
			next := records[i+1]
			if typeIdx >= len(next) || ChangeType(next[typeIdx]) != UpdatePostimage {
				return malformed(i, "update_preimage is not followed by update_postimage")
			}
			emit(UpdatePostimage, rec, next)
			i++
		case UpdatePostimage:
			return malformed(i, "update_postimage without preceding update_preimage")
		default:
			return malformed(i, "unknown change type %q", ct)
		}
	}
	return nil
}

func changeTypeIndex(header []string) (int, error) {
	for i, col := range header {
		if col == ChangeTypeColumn {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: missing %s column", errors.ErrMalformedChangeSet, ChangeTypeColumn)
}

func values(header []string, typeIdx int, rec []string) map[string]string {
	out := make(map[string]string, len(header)-1)
	for i, col := range header {
		if i == typeIdx {
			continue
		}
		out[col] = field(rec, i)
	}
	return out
}

func merge(header []string, typeIdx int, pre, post []string) map[string]string {
	out := make(map[string]string, len(header)-1)
	for i, col := range header {
		if i == typeIdx {
			continue
		}
		oldVal, newVal := field(pre, i), field(post, i)
		if oldVal != newVal {
			out[col] = MarkChanged(oldVal, newVal)
		} else {
			out[col] = newVal
		}
	}
	return out
}

// MarkChanged renders a changed cell.
func MarkChanged(oldVal, newVal string) string {
	return fmt.Sprintf("~~%s~~ %s", oldVal, newVal)
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

// Data rows are reported 1-based, not counting the header.
func malformed(idx int, format string, args ...interface{}) error {
	return fmt.Errorf("%w: row %d: %s", errors.ErrMalformedChangeSet, idx+1, fmt.Sprintf(format, args...))
}

// CurrentValue strips change markup from a cell, returning the new value.
func CurrentValue(cell string) string {
	_, current, _ := SplitChanged(cell)
	return current
}

// SplitChanged undoes MarkChanged. Cells that were not marked come back unchanged.
func SplitChanged(cell string) (oldVal, newVal string, changed bool) {
	if !strings.HasPrefix(cell, "~~") {
		return "", cell, false
	}
	if i := strings.Index(cell[2:], "~~ "); i >= 0 {
		return cell[2 : 2+i], cell[2+i+3:], true
	}
	return "", cell, false
}
