package roles

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"ingestion-portal/internal/auth"
	"ingestion-portal/internal/db"
	"ingestion-portal/internal/logger"
	"ingestion-portal/internal/model"
	"ingestion-portal/pkg/errors"
)

// Service manages portal roles stored in the relational database.
type Service struct {
	repo db.RoleRepository
	log  zerolog.Logger
}

func NewService(repo db.RoleRepository) *Service {
	return &Service{repo: repo, log: logger.Component("roles")}
}

func (s *Service) ListRoles(ctx context.Context) ([]model.Role, error) {
	return s.repo.ListRoles(ctx)
}

func (s *Service) CreateRole(ctx context.Context, name string) (*model.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.NewValidationError("name", name, "must not be empty")
	}
	role, err := s.repo.CreateRole(ctx, name)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("role", role.Name).Int64("role_id", role.ID).Msg("Role created")
	return role, nil
}

func (s *Service) ListUsersWithRoles(ctx context.Context) ([]model.UserWithRoles, error) {
	return s.repo.ListUsersWithRoles(ctx)
}

// GetUserRoles satisfies auth.RoleSource.
func (s *Service) GetUserRoles(ctx context.Context, email string) ([]string, error) {
	return s.repo.GetUserRoles(ctx, strings.ToLower(email))
}

// UpdateUserRoles replaces the user's roles with requested. Only the difference is written.
func (s *Service) UpdateUserRoles(ctx context.Context, email string, requested []string) (db.RoleDelta, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return db.RoleDelta{}, errors.NewValidationError("email", email, "must not be empty")
	}

	roles, err := normalizeRoles(requested)
	if err != nil {
		return db.RoleDelta{}, err
	}

	delta, err := s.repo.UpdateUserRoles(ctx, email, roles)
	if err != nil {
		return db.RoleDelta{}, err
	}
	s.log.Info().
		Str("email", email).
		Strs("added", delta.Added).
		Strs("removed", delta.Removed).
		Msg("User roles updated")
	return delta, nil
}

// SyncUser records the signed-in principal so administrators can assign roles to them.
func (s *Service) SyncUser(ctx context.Context, p *auth.Principal) (*model.User, error) {
	if p == nil || p.Email == "" {
		return nil, errors.NewValidationError("email", "", "principal has no email")
	}
	return s.repo.UpsertUser(ctx, p.Email, p.GivenName, p.Surname)
}

func normalizeRoles(requested []string) ([]string, error) {
	seen := make(map[string]bool, len(requested))
	out := make([]string, 0, len(requested))
	for _, r := range requested {
		r = strings.TrimSpace(r)
		if r == "" {
			return nil, errors.NewValidationError("roles", requested, "role names must not be empty")
		}
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	sort.Strings(out)
	return out, nil
}
