package filecheck

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"ingestion-portal/pkg/errors"

	"github.com/xuri/excelize/v2"
)

type csvStrategy struct{}

func (csvStrategy) Inspect(ctx context.Context, data []byte) (*Inspection, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable csv header: %v", errors.ErrInvalidFileFormat, err)
	}
	return headerInspection(header)
}

type excelStrategy struct{}

func (excelStrategy) Inspect(ctx context.Context, data []byte) (*Inspection, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel file: %v", errors.ErrInvalidFileFormat, err)
	}
	defer file.Close()

	// Get the first worksheet
	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", errors.ErrInvalidFileFormat)
	}

	rows, err := file.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read rows: %v", errors.ErrInvalidFileFormat, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("%w: first sheet is empty", errors.ErrInvalidFileFormat)
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", errors.ErrInvalidFileFormat, err)
	}
	return headerInspection(header)
}

type jsonStrategy struct{}

func (jsonStrategy) Inspect(ctx context.Context, data []byte) (*Inspection, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: invalid JSON", errors.ErrInvalidFileFormat)
	}
	return &Inspection{}, nil
}

var parquetMagic = []byte("PAR1")

type parquetStrategy struct{}

func (parquetStrategy) Inspect(ctx context.Context, data []byte) (*Inspection, error) {
	if len(data) < 2*len(parquetMagic) || !bytes.HasPrefix(data, parquetMagic) || !bytes.HasSuffix(data, parquetMagic) {
		return nil, fmt.Errorf("%w: not a parquet file", errors.ErrInvalidFileFormat)
	}
	return &Inspection{}, nil
}

type signatureStrategy struct {
	signature []byte
}

func (s signatureStrategy) Inspect(ctx context.Context, data []byte) (*Inspection, error) {
	if !bytes.HasPrefix(data, s.signature) {
		return nil, fmt.Errorf("%w: unrecognized file signature", errors.ErrInvalidFileFormat)
	}
	return &Inspection{}, nil
}

type sniffStrategy struct {
	contentType string
}

func (s sniffStrategy) Inspect(ctx context.Context, data []byte) (*Inspection, error) {
	detected := http.DetectContentType(data)
	if !strings.HasPrefix(detected, s.contentType) {
		return nil, fmt.Errorf("%w: content is %s, expected %s", errors.ErrInvalidFileFormat, detected, s.contentType)
	}
	return &Inspection{}, nil
}

func headerInspection(header []string) (*Inspection, error) {
	cleaned := make([]string, 0, len(header))
	for i, col := range header {
		col = strings.TrimSpace(col)
		if col == "" {
			return nil, fmt.Errorf("%w: header column %d is empty", errors.ErrInvalidFileFormat, i+1)
		}
		cleaned = append(cleaned, col)
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("%w: no header row", errors.ErrInvalidFileFormat)
	}
	return &Inspection{Header: cleaned}, nil
}
