package approval

import (
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ingestion-portal/internal/country"
	perrors "ingestion-portal/pkg/errors"
)

// Location identifies one change-set file relative to the approval requests prefix,
// e.g. "school-coverage/KEN_school_coverage_20240501.csv".
type Location struct {
	Subpath     string
	DatasetDir  string
	Filename    string
	Country     string // ISO3
	CountryName string
	Dataset     string
}

// ParseSubpath derives the country and dataset of a change-set file from its path.
func ParseSubpath(subpath string) (Location, error) {
	clean := strings.TrimPrefix(path.Clean("/"+subpath), "/")
	if clean == "" || clean != strings.TrimPrefix(subpath, "/") || strings.Contains(clean, "..") {
		return Location{}, perrors.NewValidationError("subpath", subpath, "invalid change set path")
	}

	dir, filename := path.Split(clean)
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" || strings.Contains(dir, "/") {
		return Location{}, perrors.NewValidationError("subpath", subpath, "expected {dataset}/{file}")
	}
	if !strings.EqualFold(path.Ext(filename), ".csv") {
		return Location{}, perrors.NewValidationError("subpath", subpath, "change sets are csv files")
	}

	code, _, ok := strings.Cut(filename, "_")
	if !ok {
		return Location{}, perrors.NewValidationError("subpath", subpath, "file name must start with a country code")
	}
	iso3, name, valid := country.Lookup(code)
	if !valid {
		return Location{}, perrors.NewValidationError("subpath", subpath, "unknown country code "+code)
	}

	return Location{
		Subpath:     clean,
		DatasetDir:  dir,
		Filename:    filename,
		Country:     iso3,
		CountryName: name,
		Dataset:     DatasetName(dir),
	}, nil
}

// DatasetName turns a dataset directory such as "school-coverage" into "School Coverage".
func DatasetName(dir string) string {
	// Casers carry state and are not shared.
	return cases.Title(language.English).String(strings.ReplaceAll(dir, "-", " "))
}

// ApprovedRowsKey is where the approved row identifiers of a change set are written.
func (l Location) ApprovedRowsKey(prefix string) string {
	return path.Join(prefix, l.DatasetDir, strings.TrimSuffix(l.Filename, path.Ext(l.Filename))+".json")
}

func (l Location) Key(prefix string) string {
	return path.Join(prefix, l.Subpath)
}
