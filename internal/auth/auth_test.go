package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"ingestion-portal/internal/config"
	perrors "ingestion-portal/pkg/errors"
)

func TestCapabilities(t *testing.T) {
	tests := []struct {
		name       string
		names      []string
		privileged bool
		kenya      bool
		brazil     bool
	}{
		{"admin sees everything", []string{"Admin"}, true, true, true},
		{"super sees everything", []string{"super"}, true, true, true},
		{"scoped group", []string{"kenya-school coverage"}, false, true, false},
		{"mixed case scoped group", []string{"Kenya-School Coverage"}, false, true, false},
		{"nothing", nil, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := NewCapabilities(tt.names)
			if caps.IsPrivileged() != tt.privileged {
				t.Errorf("IsPrivileged() = %v, want %v", caps.IsPrivileged(), tt.privileged)
			}
			if got := caps.CanAccess("Kenya", "School Coverage"); got != tt.kenya {
				t.Errorf("CanAccess(Kenya) = %v, want %v", got, tt.kenya)
			}
			if got := caps.CanAccess("Brazil", "School Coverage"); got != tt.brazil {
				t.Errorf("CanAccess(Brazil) = %v, want %v", got, tt.brazil)
			}
		})
	}
}

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier(config.AuthConfig{JWTSecret: "secret", Issuer: "portal", Audience: "api"})

	token, err := v.Issue(Principal{ID: "u1", Email: "Jane@Example.org", Groups: []string{"Admin"}}, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	p, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if p.ID != "u1" || p.Email != "jane@example.org" {
		t.Errorf("Verify() = %+v, want u1 jane@example.org", p)
	}
	if len(p.Groups) != 1 || p.Groups[0] != "Admin" {
		t.Errorf("Groups = %v, want [Admin]", p.Groups)
	}
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier(config.AuthConfig{JWTSecret: "secret"})
	good, err := v.Issue(Principal{ID: "u1", Email: "a@example.org"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	other := NewVerifier(config.AuthConfig{JWTSecret: "other"})
	expired := NewVerifier(config.AuthConfig{JWTSecret: "secret"})
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := expired.Issue(Principal{ID: "u1", Email: "a@example.org"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name     string
		verifier *Verifier
		token    string
	}{
		{"wrong secret", other, good},
		{"expired", v, stale},
		{"garbage", v, "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.verifier.Verify(tt.token); !errors.Is(err, perrors.ErrUnauthorized) {
				t.Errorf("Verify() error = %v, want ErrUnauthorized", err)
			}
		})
	}
}

type stubGroups struct {
	names []string
	calls int
}

func (s *stubGroups) GroupNames(context.Context, string) ([]string, error) {
	s.calls++
	return s.names, nil
}

type stubRoles []string

func (s stubRoles) GetUserRoles(context.Context, string) ([]string, error) { return s, nil }

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	groups := &stubGroups{names: []string{"Kenya-School Coverage"}}
	r := NewResolver(groups, stubRoles{"Super"})

	caps, err := r.Resolve(ctx, &Principal{ID: "u1", Email: "a@example.org"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !caps.Has("kenya-school coverage") || !caps.IsSuper() {
		t.Errorf("Resolve() = %v, want directory group and db role", caps.Names())
	}
	if groups.calls != 1 {
		t.Errorf("directory calls = %d, want 1", groups.calls)
	}

	if _, err := r.Resolve(ctx, &Principal{ID: "u1", Email: "a@example.org", Groups: []string{"Admin"}}); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if groups.calls != 1 {
		t.Errorf("directory consulted despite group claim")
	}
}
