package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler, authn gin.HandlerFunc) {
	api := router.Group("/api")
	api.GET("/health", handler.HealthCheck)

	authed := api.Group("", authn)
	{
		authed.GET("/me", handler.Me)

		authed.GET("/upload", handler.ListUploads)
		authed.POST("/upload", handler.CreateUpload)
		authed.GET("/upload/:id", handler.GetUpload)
		authed.GET("/upload/:id/data-quality-check", handler.GetQualityReport)
		authed.POST("/email/upload-success/:id", handler.SendUploadSuccessEmail)

		authed.GET("/approval-requests", handler.ListApprovalRequests)
		authed.GET("/approval-requests/detail/*subpath", handler.GetApprovalRequest)
		authed.POST("/approval-requests/approve", handler.ApproveRows)
		authed.PATCH("/approval-requests/enabled", RequireAdmin(), handler.SetApprovalEnabled)

		authed.GET("/schema", handler.ListSchemas)
		authed.GET("/schema/:name", handler.GetSchema)

		authed.GET("/qos/school-list", handler.ListSchoolLists)
		authed.POST("/qos/school-list", handler.CreateSchoolList)
		authed.GET("/qos/school-list/:id", handler.GetSchoolList)
		authed.PATCH("/qos/school-list/:id", handler.UpdateSchoolList)
		authed.GET("/qos/school-list/:id/connectivity", handler.GetConnectivity)
		authed.PUT("/qos/school-list/:id/connectivity", handler.PutConnectivity)
	}

	privileged := authed.Group("", RequirePrivileged())
	{
		privileged.GET("/roles", handler.ListRoles)
		privileged.POST("/roles", handler.CreateRole)
		privileged.GET("/roles/users", handler.ListUsersWithRoles)
		privileged.PUT("/roles/users/:email", handler.UpdateUserRoles)

		privileged.GET("/groups", handler.ListGroups)
		privileged.POST("/groups", handler.CreateGroup)
		privileged.GET("/groups/:id", handler.GetGroup)
		privileged.PATCH("/groups/:id", handler.UpdateGroup)
		privileged.DELETE("/groups/:id", handler.DeleteGroup)
		privileged.GET("/groups/:id/members", handler.ListGroupMembers)
		privileged.POST("/groups/:id/members", handler.AddGroupMembers)
		privileged.DELETE("/groups/:id/members/:user_id", handler.RemoveGroupMember)

		privileged.GET("/users", handler.ListUsers)
		privileged.GET("/users/:id", handler.GetUser)
		privileged.GET("/users/:id/groups", handler.ListUserGroups)
		privileged.PUT("/users/:id/groups", handler.ModifyUserGroups)
	}
}

// SetupSPA serves the built frontend from staticDir. Unknown non-API paths fall back to
// index.html so client-side routes survive a reload.
func SetupSPA(router *gin.Engine, staticDir string) {
	index := filepath.Join(staticDir, "index.html")

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || c.Request.Method != http.MethodGet {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}

		// http.ServeFile rejects any path holding "..", so serve the cleaned one.
		clean := path.Clean("/" + c.Request.URL.Path)
		c.Request.URL.Path = clean
		candidate := filepath.Join(staticDir, filepath.FromSlash(clean))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			c.File(candidate)
			return
		}
		c.File(index)
	})
}
