package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"ingestion-portal/internal/logger"
	"ingestion-portal/internal/model"
	perrors "ingestion-portal/pkg/errors"

	"github.com/rs/zerolog"
)

// Service exposes group and user administration on top of the directory client.
type Service struct {
	client  *Client
	baseURL string
	log     zerolog.Logger
}

func NewService(client *Client) *Service {
	return &Service{
		client:  client,
		baseURL: strings.TrimRight(client.cfg.BaseURL, "/"),
		log:     logger.Component("directory"),
	}
}

func (s *Service) ListGroups(ctx context.Context) ([]model.DirectoryGroup, error) {
	return s.client.ListGroups(ctx)
}

func (s *Service) GetGroup(ctx context.Context, id string) (*model.DirectoryGroup, error) {
	return s.client.GetGroup(ctx, id)
}

func (s *Service) CreateGroup(ctx context.Context, req model.CreateGroupRequest) (*model.DirectoryGroup, error) {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return nil, perrors.NewValidationError("display_name", req.DisplayName, "must not be empty")
	}

	group, err := s.client.CreateGroup(ctx, name, req.Description)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("group_id", group.ID).Str("display_name", name).Msg("Group created")
	return group, nil
}

func (s *Service) UpdateGroup(ctx context.Context, id string, req model.UpdateGroupRequest) (*model.DirectoryGroup, error) {
	patch := map[string]interface{}{}
	if req.DisplayName != nil {
		if strings.TrimSpace(*req.DisplayName) == "" {
			return nil, perrors.NewValidationError("display_name", *req.DisplayName, "must not be empty")
		}
		patch["displayName"] = strings.TrimSpace(*req.DisplayName)
	}
	if req.Description != nil {
		patch["description"] = *req.Description
	}
	if len(patch) == 0 {
		return nil, perrors.NewValidationError("body", "", "nothing to update")
	}

	if err := s.client.UpdateGroup(ctx, id, patch); err != nil {
		return nil, err
	}
	return s.client.GetGroup(ctx, id)
}

func (s *Service) DeleteGroup(ctx context.Context, id string) error {
	if err := s.client.DeleteGroup(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("group_id", id).Msg("Group deleted")
	return nil
}

func (s *Service) ListGroupMembers(ctx context.Context, id string) ([]model.DirectoryUser, error) {
	return s.client.ListGroupMembers(ctx, id)
}

// AddGroupMembers adds every user through the batch endpoint and returns the per-user responses.
func (s *Service) AddGroupMembers(ctx context.Context, groupID string, userIDs []string) ([]model.BatchResponseItem, error) {
	if len(userIDs) == 0 {
		return nil, perrors.NewValidationError("user_ids", userIDs, "must not be empty")
	}

	items := make([]model.BatchRequestItem, 0, len(userIDs))
	for i, userID := range userIDs {
		items = append(items, s.addMemberItem(fmt.Sprintf("%d", i+1), groupID, userID))
	}

	return s.client.Batch(ctx, items)
}

func (s *Service) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	path := "/groups/" + url.PathEscape(groupID) + "/members/" + url.PathEscape(userID) + "/$ref"
	return s.client.do(ctx, http.MethodDelete, path, nil, nil)
}

func (s *Service) ListUsers(ctx context.Context) ([]model.DirectoryUser, error) {
	return s.client.ListUsers(ctx)
}

func (s *Service) GetUser(ctx context.Context, id string) (*model.DirectoryUser, error) {
	return s.client.GetUser(ctx, id)
}

func (s *Service) ListUserGroups(ctx context.Context, userID string) ([]model.DirectoryGroup, error) {
	return s.client.ListUserGroups(ctx, userID)
}

// GroupNames returns the display names of the user's groups.
func (s *Service) GroupNames(ctx context.Context, userID string) ([]string, error) {
	groups, err := s.client.ListUserGroups(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.DisplayName)
	}
	return names, nil
}

// ModifyUserGroups adds the user to and removes them from groups in one batched pass.
func (s *Service) ModifyUserGroups(ctx context.Context, userID string, req model.ModifyUserGroupsRequest) ([]model.BatchResponseItem, error) {
	if len(req.Add) == 0 && len(req.Remove) == 0 {
		return nil, perrors.NewValidationError("body", "", "add or remove must list at least one group")
	}

	items := make([]model.BatchRequestItem, 0, len(req.Add)+len(req.Remove))
	n := 0
	for _, groupID := range req.Add {
		n++
		items = append(items, s.addMemberItem(fmt.Sprintf("%d", n), groupID, userID))
	}
	for _, groupID := range req.Remove {
		n++
		items = append(items, model.BatchRequestItem{
			ID:     fmt.Sprintf("%d", n),
			Method: http.MethodDelete,
			URL:    "/groups/" + url.PathEscape(groupID) + "/members/" + url.PathEscape(userID) + "/$ref",
		})
	}

	responses, err := s.client.Batch(ctx, items)
	if err != nil {
		return responses, err
	}

	failed := 0
	for _, r := range responses {
		if r.Status >= 300 {
			failed++
		}
	}
	s.log.Info().Str("user_id", userID).Int("requests", len(items)).Int("failed", failed).Msg("User group membership modified")
	return responses, nil
}

func (s *Service) addMemberItem(id, groupID, userID string) model.BatchRequestItem {
	return model.BatchRequestItem{
		ID:      id,
		Method:  http.MethodPost,
		URL:     "/groups/" + url.PathEscape(groupID) + "/members/$ref",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    map[string]string{"@odata.id": s.baseURL + "/directoryObjects/" + url.PathEscape(userID)},
	}
}
