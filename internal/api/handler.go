package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"ingestion-portal/internal/approval"
	"ingestion-portal/internal/auth"
	"ingestion-portal/internal/config"
	"ingestion-portal/internal/db"
	"ingestion-portal/internal/logger"
	"ingestion-portal/internal/model"
	"ingestion-portal/internal/qos"
	"ingestion-portal/internal/upload"
	perrors "ingestion-portal/pkg/errors"
)

type TokenVerifier interface {
	Verify(token string) (*auth.Principal, error)
}

type CapabilityResolver interface {
	Resolve(ctx context.Context, p *auth.Principal) (auth.Capabilities, error)
}

type UploadService interface {
	Create(ctx context.Context, p *auth.Principal, in upload.CreateInput) (*model.FileUpload, error)
	List(ctx context.Context, p *auth.Principal, caps auth.Capabilities, page, pageSize int) (*model.Page[model.FileUpload], error)
	Get(ctx context.Context, p *auth.Principal, caps auth.Capabilities, id string) (*model.FileUpload, error)
	QualityReport(ctx context.Context, p *auth.Principal, caps auth.Capabilities, id string) ([]byte, error)
	NotifyUploadSuccess(ctx context.Context, p *auth.Principal, caps auth.Capabilities, id string) error
}

type ApprovalService interface {
	List(ctx context.Context, caps auth.Capabilities) ([]model.ChangeSetSummary, error)
	Get(ctx context.Context, caps auth.Capabilities, subpath string, page, pageSize int) (*approval.Detail, error)
	Approve(ctx context.Context, caps auth.Capabilities, p *auth.Principal, req model.ApproveRequest) (*model.ApprovalRequest, error)
	SetEnabled(ctx context.Context, req model.SetApprovalEnabledRequest) (*model.ApprovalRequest, error)
}

type SchemaService interface {
	List(ctx context.Context) ([]string, error)
	Get(ctx context.Context, name string) (*model.Schema, error)
}

type RoleService interface {
	ListRoles(ctx context.Context) ([]model.Role, error)
	CreateRole(ctx context.Context, name string) (*model.Role, error)
	ListUsersWithRoles(ctx context.Context) ([]model.UserWithRoles, error)
	UpdateUserRoles(ctx context.Context, email string, requested []string) (db.RoleDelta, error)
	SyncUser(ctx context.Context, p *auth.Principal) (*model.User, error)
}

type DirectoryService interface {
	ListGroups(ctx context.Context) ([]model.DirectoryGroup, error)
	GetGroup(ctx context.Context, id string) (*model.DirectoryGroup, error)
	CreateGroup(ctx context.Context, req model.CreateGroupRequest) (*model.DirectoryGroup, error)
	UpdateGroup(ctx context.Context, id string, req model.UpdateGroupRequest) (*model.DirectoryGroup, error)
	DeleteGroup(ctx context.Context, id string) error
	ListGroupMembers(ctx context.Context, id string) ([]model.DirectoryUser, error)
	AddGroupMembers(ctx context.Context, groupID string, userIDs []string) ([]model.BatchResponseItem, error)
	RemoveGroupMember(ctx context.Context, groupID, userID string) error
	ListUsers(ctx context.Context) ([]model.DirectoryUser, error)
	GetUser(ctx context.Context, id string) (*model.DirectoryUser, error)
	ListUserGroups(ctx context.Context, userID string) ([]model.DirectoryGroup, error)
	ModifyUserGroups(ctx context.Context, userID string, req model.ModifyUserGroupsRequest) ([]model.BatchResponseItem, error)
}

type QoSService interface {
	ListSchoolLists(ctx context.Context, page, pageSize int) (*model.Page[model.SchoolList], error)
	GetSchoolList(ctx context.Context, id string) (*model.SchoolList, error)
	CreateSchoolList(ctx context.Context, p *auth.Principal, in qos.SchoolListInput) (*model.SchoolList, error)
	UpdateSchoolList(ctx context.Context, id string, in qos.SchoolListInput) (*model.SchoolList, error)
	GetConnectivity(ctx context.Context, schoolListID string) (*model.SchoolConnectivity, error)
	PutConnectivity(ctx context.Context, schoolListID string, in qos.ConnectivityInput) (*model.SchoolConnectivity, error)
}

// Services groups the collaborators the handlers delegate to.
type Services struct {
	Uploads   UploadService
	Approvals ApprovalService
	Schemas   SchemaService
	Roles     RoleService
	Directory DirectoryService
	QoS       QoSService
}

type Handler struct {
	svc Services
	cfg *config.Config
	log zerolog.Logger
}

func NewHandler(cfg *config.Config, svc Services) *Handler {
	return &Handler{
		svc: svc,
		cfg: cfg,
		log: logger.Component("api"),
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	})
}

// Me records the caller in the users table and returns their identity and capabilities.
func (h *Handler) Me(c *gin.Context) {
	p, caps := identity(c)

	user, err := h.svc.Roles.SyncUser(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":          user,
		"id":            p.ID,
		"email":         p.Email,
		"capabilities":  caps.Names(),
		"is_admin":      caps.IsAdmin(),
		"is_privileged": caps.IsPrivileged(),
	})
}

// respondError maps service errors onto HTTP responses.
func respondError(c *gin.Context, err error) {
	var (
		vErr        perrors.ValidationError
		upstreamErr perrors.UpstreamError
	)

	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message, "field": vErr.Field})
	case errors.As(err, &upstreamErr):
		c.JSON(upstreamErr.StatusCode, gin.H{"error": upstreamErr.Message})
	case errors.Is(err, perrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, perrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, perrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, perrors.ErrInvalidFileFormat), errors.Is(err, perrors.ErrFileTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, perrors.ErrMalformedChangeSet):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, perrors.ErrExternalAPITimeout):
		logger.FromContext(c.Request.Context()).Error().Err(err).Msg("Directory request timed out")
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Upstream service timed out"})
	default:
		logger.FromContext(c.Request.Context()).Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func identity(c *gin.Context) (*auth.Principal, auth.Capabilities) {
	p, caps, _ := auth.FromContext(c.Request.Context())
	return p, caps
}

// pagination reads page and page_size; zero means "use the default".
func pagination(c *gin.Context) (int, int, error) {
	page, err := intQuery(c, "page")
	if err != nil {
		return 0, 0, err
	}
	pageSize, err := intQuery(c, "page_size")
	if err != nil {
		return 0, 0, err
	}
	return page, pageSize, nil
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, perrors.NewValidationError(name, raw, "must be a non-negative integer")
	}
	return v, nil
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return false
	}
	return true
}
