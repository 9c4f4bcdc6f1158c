package filecheck

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"ingestion-portal/internal/config"
	"ingestion-portal/pkg/errors"
)

var (
	structuredExtensions   = []string{".csv", ".xls", ".xlsx", ".json", ".parquet"}
	unstructuredExtensions = append([]string{".png", ".jpg", ".jpeg", ".pdf"}, structuredExtensions...)
)

// File is an upload as received from the client.
type File struct {
	Filename string
	Dataset  string
	Size     int64
	Data     []byte
	// Mapping maps file columns to schema columns.
	Mapping map[string]interface{}
}

type Validator struct {
	maxSize      int64
	unstructured string
}

func NewValidator(cfg config.UploadConfig) *Validator {
	return &Validator{
		maxSize:      cfg.MaxFileSize,
		unstructured: cfg.UnstructuredName,
	}
}

// Validate checks extension, size, content and column mapping, in that order.
func (v *Validator) Validate(ctx context.Context, f File) (*Inspection, error) {
	ext := strings.ToLower(filepath.Ext(f.Filename))
	allowed := structuredExtensions
	if f.Dataset == v.unstructured {
		allowed = unstructuredExtensions
	}
	if !contains(allowed, ext) {
		return nil, errors.ValidationError{
			Field:   "file",
			Value:   f.Filename,
			Message: fmt.Sprintf("extension must be one of %s", strings.Join(allowed, ", ")),
		}
	}

	if f.Size > v.maxSize || int64(len(f.Data)) > v.maxSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", errors.ErrFileTooLarge, f.Size, v.maxSize)
	}
	if len(f.Data) == 0 {
		return nil, errors.ValidationError{Field: "file", Value: f.Filename, Message: "file is empty"}
	}

	strategy, ok := StrategyFor(ext)
	if !ok {
		return nil, errors.ErrInvalidFileFormat
	}
	inspection, err := strategy.Inspect(ctx, f.Data)
	if err != nil {
		return nil, err
	}

	if f.Dataset != v.unstructured && inspection.Header != nil {
		if err := validateMapping(inspection.Header, f.Mapping); err != nil {
			return nil, err
		}
	}

	return inspection, nil
}

func validateMapping(header []string, mapping map[string]interface{}) error {
	columns := make(map[string]bool, len(header))
	for _, col := range header {
		columns[col] = true
	}

	var missing []string
	for col := range mapping {
		if !columns[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.ValidationError{
			Field:   "column_to_schema_mapping",
			Value:   strings.Join(missing, ", "),
			Message: "mapped columns are not in the file header",
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
