package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ingestion-portal/internal/model"
)

func (h *Handler) ListRoles(c *gin.Context) {
	roles, err := h.svc.Roles.ListRoles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

func (h *Handler) CreateRole(c *gin.Context) {
	var req model.CreateRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.svc.Roles.CreateRole(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, role)
}

func (h *Handler) ListUsersWithRoles(c *gin.Context) {
	users, err := h.svc.Roles.ListUsersWithRoles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) UpdateUserRoles(c *gin.Context) {
	var req model.UpdateUserRolesRequest
	if !bindJSON(c, &req) {
		return
	}

	delta, err := h.svc.Roles.UpdateUserRoles(c.Request.Context(), c.Param("email"), req.Roles)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, delta)
}
