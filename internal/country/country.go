// Package country resolves ISO 3166-1 alpha-3 codes.
package country

import (
	"strings"

	"github.com/biter777/countries"
)

// Lookup validates an ISO3 code and returns it uppercased with its English display name.
func Lookup(code string) (iso3, name string, ok bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", "", false
	}
	c := countries.ByName(code)
	if c == countries.Unknown || c.Alpha3() != code {
		return "", "", false
	}
	return code, c.String(), true
}
