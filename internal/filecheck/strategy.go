// Package filecheck validates uploaded files before they are stored.
package filecheck

import (
	"context"
	"strings"
)

// Inspection is what a strategy learned about a file. Header is set for tabular files.
type Inspection struct {
	Header []string
}

// Strategy checks that a file's content matches its extension.
type Strategy interface {
	Inspect(ctx context.Context, data []byte) (*Inspection, error)
}

var strategies = map[string]Strategy{
	".csv":     csvStrategy{},
	".xlsx":    excelStrategy{},
	".xls":     signatureStrategy{signature: []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}},
	".json":    jsonStrategy{},
	".parquet": parquetStrategy{},
	".png":     sniffStrategy{contentType: "image/png"},
	".jpg":     sniffStrategy{contentType: "image/jpeg"},
	".jpeg":    sniffStrategy{contentType: "image/jpeg"},
	".pdf":     sniffStrategy{contentType: "application/pdf"},
}

func StrategyFor(ext string) (Strategy, bool) {
	s, ok := strategies[strings.ToLower(ext)]
	return s, ok
}
