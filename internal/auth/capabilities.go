package auth

import (
	"context"
	"sort"
	"strings"
)

const (
	RoleAdmin = "admin"
	RoleSuper = "super"
)

// Capabilities is the caller's lowercased set of group and role names.
type Capabilities struct {
	names map[string]struct{}
}

func NewCapabilities(sets ...[]string) Capabilities {
	c := Capabilities{names: map[string]struct{}{}}
	for _, set := range sets {
		for _, name := range set {
			if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
				c.names[name] = struct{}{}
			}
		}
	}
	return c
}

func (c Capabilities) Has(name string) bool {
	_, ok := c.names[strings.ToLower(name)]
	return ok
}

func (c Capabilities) IsAdmin() bool { return c.Has(RoleAdmin) }

func (c Capabilities) IsSuper() bool { return c.Has(RoleSuper) }

func (c Capabilities) IsPrivileged() bool { return c.IsAdmin() || c.IsSuper() }

// CanAccess reports whether the caller may see data for the country/dataset pair.
// country is the display name, e.g. "Kenya".
func (c Capabilities) CanAccess(country, dataset string) bool {
	return c.IsPrivileged() || c.Has(AccessKey(country, dataset))
}

func (c Capabilities) Names() []string {
	names := make([]string, 0, len(c.names))
	for name := range c.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AccessKey is the group name granting access to one country's dataset.
func AccessKey(country, dataset string) string {
	return strings.ToLower(country + "-" + dataset)
}

type ctxKey struct{}

type identity struct {
	principal    *Principal
	capabilities Capabilities
}

func WithIdentity(ctx context.Context, p *Principal, caps Capabilities) context.Context {
	return context.WithValue(ctx, ctxKey{}, identity{principal: p, capabilities: caps})
}

// FromContext returns the caller attached by WithIdentity.
func FromContext(ctx context.Context) (*Principal, Capabilities, bool) {
	id, ok := ctx.Value(ctxKey{}).(identity)
	if !ok {
		return nil, NewCapabilities(), false
	}
	return id.principal, id.capabilities, true
}
