package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ingestion-portal/internal/model"
	perrors "ingestion-portal/pkg/errors"
)

func (h *Handler) ListGroups(c *gin.Context) {
	groups, err := h.svc.Directory.ListGroups(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (h *Handler) GetGroup(c *gin.Context) {
	group, err := h.svc.Directory.GetGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (h *Handler) CreateGroup(c *gin.Context) {
	var req model.CreateGroupRequest
	if !bindJSON(c, &req) {
		return
	}

	group, err := h.svc.Directory.CreateGroup(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, group)
}

func (h *Handler) UpdateGroup(c *gin.Context) {
	var req model.UpdateGroupRequest
	if !bindJSON(c, &req) {
		return
	}

	group, err := h.svc.Directory.UpdateGroup(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (h *Handler) DeleteGroup(c *gin.Context) {
	if err := h.svc.Directory.DeleteGroup(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListGroupMembers(c *gin.Context) {
	members, err := h.svc.Directory.ListGroupMembers(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *Handler) AddGroupMembers(c *gin.Context) {
	var req model.AddGroupMembersRequest
	if !bindJSON(c, &req) {
		return
	}

	responses, err := h.svc.Directory.AddGroupMembers(c.Request.Context(), c.Param("id"), req.UserIDs)
	respondBatch(c, responses, err)
}

func (h *Handler) RemoveGroupMember(c *gin.Context) {
	if err := h.svc.Directory.RemoveGroupMember(c.Request.Context(), c.Param("id"), c.Param("user_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.svc.Directory.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.svc.Directory.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) ListUserGroups(c *gin.Context) {
	groups, err := h.svc.Directory.ListUserGroups(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (h *Handler) ModifyUserGroups(c *gin.Context) {
	var req model.ModifyUserGroupsRequest
	if !bindJSON(c, &req) {
		return
	}

	responses, err := h.svc.Directory.ModifyUserGroups(c.Request.Context(), c.Param("id"), req)
	respondBatch(c, responses, err)
}

// respondBatch returns the sub-responses collected so far. When a chunk failed after
// earlier chunks were applied, the partial responses are returned with the failure.
func respondBatch(c *gin.Context, responses []model.BatchResponseItem, err error) {
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"responses": responses})
		return
	}
	if len(responses) == 0 {
		respondError(c, err)
		return
	}

	status := http.StatusBadGateway
	var upstreamErr perrors.UpstreamError
	if errors.As(err, &upstreamErr) {
		status = upstreamErr.StatusCode
	}
	c.JSON(status, gin.H{"error": "batch stopped after a failed chunk", "responses": responses})
}
