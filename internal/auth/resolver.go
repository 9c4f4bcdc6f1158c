package auth

import (
	"context"

	"ingestion-portal/internal/logger"

	"github.com/rs/zerolog"
)

type GroupSource interface {
	GroupNames(ctx context.Context, userID string) ([]string, error)
}

type RoleSource interface {
	GetUserRoles(ctx context.Context, email string) ([]string, error)
}

// Resolver computes a caller's capabilities once per request.
type Resolver struct {
	groups GroupSource
	roles  RoleSource
	log    zerolog.Logger
}

func NewResolver(groups GroupSource, roles RoleSource) *Resolver {
	return &Resolver{groups: groups, roles: roles, log: logger.Component("auth")}
}

// Resolve unions the token's group claim, falling back to directory membership when the
// claim is absent, with the roles held in the relational store.
func (r *Resolver) Resolve(ctx context.Context, p *Principal) (Capabilities, error) {
	groups := p.Groups
	if len(groups) == 0 && r.groups != nil {
		names, err := r.groups.GroupNames(ctx, p.ID)
		if err != nil {
			return Capabilities{}, err
		}
		groups = names
	}

	var roles []string
	if r.roles != nil {
		names, err := r.roles.GetUserRoles(ctx, p.Email)
		if err != nil {
			return Capabilities{}, err
		}
		roles = names
	}

	caps := NewCapabilities(groups, roles)
	r.log.Debug().Str("user_id", p.ID).Strs("capabilities", caps.Names()).Msg("Capabilities resolved")
	return caps, nil
}
