package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"ingestion-portal/internal/approval"
	"ingestion-portal/internal/auth"
	"ingestion-portal/internal/config"
	"ingestion-portal/internal/db"
	"ingestion-portal/internal/model"
	"ingestion-portal/internal/upload"
	perrors "ingestion-portal/pkg/errors"
)

type groupResolver struct{}

func (groupResolver) Resolve(ctx context.Context, p *auth.Principal) (auth.Capabilities, error) {
	return auth.NewCapabilities(p.Groups), nil
}

type fakeUploads struct {
	UploadService
	created []upload.CreateInput
	listed  []int
}

func (f *fakeUploads) Create(ctx context.Context, p *auth.Principal, in upload.CreateInput) (*model.FileUpload, error) {
	f.created = append(f.created, in)
	if in.Country == "XXX" {
		return nil, perrors.NewValidationError("country", in.Country, "unknown ISO3 country code")
	}
	return &model.FileUpload{ID: "u1", UploaderEmail: p.Email, Country: in.Country, Dataset: in.Dataset}, nil
}

func (f *fakeUploads) List(ctx context.Context, p *auth.Principal, caps auth.Capabilities, page, pageSize int) (*model.Page[model.FileUpload], error) {
	f.listed = append(f.listed, page, pageSize)
	return &model.Page[model.FileUpload]{Data: []model.FileUpload{}, Page: page, PageSize: pageSize}, nil
}

type fakeApprovals struct {
	ApprovalService
	gotSubpath string
}

func (f *fakeApprovals) Get(ctx context.Context, caps auth.Capabilities, subpath string, page, pageSize int) (*approval.Detail, error) {
	f.gotSubpath = subpath
	if strings.Contains(subpath, "broken") {
		return nil, fmt.Errorf("%w: row 3: update_preimage not followed by update_postimage", perrors.ErrMalformedChangeSet)
	}
	if !caps.CanAccess("Kenya", "School Coverage") {
		return nil, perrors.ErrNotFound
	}
	return &approval.Detail{Page: page, PageSize: pageSize}, nil
}

func (f *fakeApprovals) SetEnabled(ctx context.Context, req model.SetApprovalEnabledRequest) (*model.ApprovalRequest, error) {
	return &model.ApprovalRequest{Country: req.Country, Dataset: req.Dataset, Enabled: req.Enabled}, nil
}

type fakeRoles struct {
	RoleService
	synced []string
}

func (f *fakeRoles) SyncUser(ctx context.Context, p *auth.Principal) (*model.User, error) {
	f.synced = append(f.synced, p.Email)
	return &model.User{ID: 1, Email: p.Email, Enabled: true}, nil
}

func (f *fakeRoles) UpdateUserRoles(ctx context.Context, email string, requested []string) (db.RoleDelta, error) {
	return db.RoleDelta{Added: []string{"C"}, Removed: []string{"A"}}, nil
}

type fakeDirectory struct {
	DirectoryService
}

func (fakeDirectory) GetGroup(ctx context.Context, id string) (*model.DirectoryGroup, error) {
	return nil, perrors.UpstreamError{StatusCode: http.StatusNotFound, Message: "Resource '" + id + "' does not exist"}
}

func (fakeDirectory) AddGroupMembers(ctx context.Context, groupID string, userIDs []string) ([]model.BatchResponseItem, error) {
	partial := []model.BatchResponseItem{{ID: "1", Status: 204}, {ID: "2", Status: 204}, {ID: "3", Status: 204}}
	return partial, perrors.UpstreamError{StatusCode: http.StatusServiceUnavailable, Message: "throttled"}
}

type testEnv struct {
	router    *gin.Engine
	verifier  *auth.Verifier
	uploads   *fakeUploads
	approvals *fakeApprovals
	roles     *fakeRoles
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		App:    config.AppConfig{Name: "ingestion-portal", Version: "test"},
		Upload: config.UploadConfig{MaxFileSize: 64},
	}
	env := &testEnv{
		verifier:  auth.NewVerifier(config.AuthConfig{JWTSecret: "test-secret"}),
		uploads:   &fakeUploads{},
		approvals: &fakeApprovals{},
		roles:     &fakeRoles{},
	}

	env.router = gin.New()
	env.router.Use(LoggingMiddleware(), RecoveryMiddleware())
	handler := NewHandler(cfg, Services{
		Uploads:   env.uploads,
		Approvals: env.approvals,
		Roles:     env.roles,
		Directory: fakeDirectory{},
	})
	SetupRoutes(env.router, handler, AuthMiddleware(env.verifier, groupResolver{}))
	return env
}

func (e *testEnv) token(t *testing.T, groups ...string) string {
	t.Helper()
	tok, err := e.verifier.Issue(auth.Principal{ID: "oid-1", Email: "jane@example.org", Groups: groups}, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return tok
}

func (e *testEnv) do(method, path, token, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealthCheck_NoAuth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/api/health", "", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Errorf("missing %s header", requestIDHeader)
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized},
		{"valid token", env.token(t), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do(http.MethodGet, "/api/upload", tt.token, "", nil); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestPrivilegedRoutes(t *testing.T) {
	env := newTestEnv(t)
	body := `{"roles":["B","C"]}`

	w := env.do(http.MethodPut, "/api/roles/users/jane@example.org", env.token(t, "Kenya-School Coverage"), "application/json", strings.NewReader(body))
	if w.Code != http.StatusForbidden {
		t.Errorf("non-privileged status = %d, want %d", w.Code, http.StatusForbidden)
	}

	w = env.do(http.MethodPut, "/api/roles/users/jane@example.org", env.token(t, "Super"), "application/json", strings.NewReader(body))
	if w.Code != http.StatusOK {
		t.Fatalf("super status = %d, want %d (%s)", w.Code, http.StatusOK, w.Body.String())
	}
	got := decode(t, w)
	if fmt.Sprint(got["added"]) != "[C]" || fmt.Sprint(got["removed"]) != "[A]" {
		t.Errorf("delta = %v", got)
	}

	w = env.do(http.MethodPatch, "/api/approval-requests/enabled", env.token(t, "Super"), "application/json",
		strings.NewReader(`{"country":"KEN","dataset":"School Coverage","enabled":true}`))
	if w.Code != http.StatusForbidden {
		t.Errorf("super toggling approvals status = %d, want %d", w.Code, http.StatusForbidden)
	}
	w = env.do(http.MethodPatch, "/api/approval-requests/enabled", env.token(t, "Admin"), "application/json",
		strings.NewReader(`{"country":"KEN","dataset":"School Coverage","enabled":true}`))
	if w.Code != http.StatusOK {
		t.Errorf("admin toggling approvals status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestMe_SyncsUser(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/api/me", env.token(t, "Admin"), "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	got := decode(t, w)
	if got["is_admin"] != true || got["email"] != "jane@example.org" {
		t.Errorf("body = %v", got)
	}
	if len(env.roles.synced) != 1 {
		t.Errorf("synced = %v, want one user", env.roles.synced)
	}
}

func TestListUploads_Pagination(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(http.MethodGet, "/api/upload?page=2&page_size=5", env.token(t), "", nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if fmt.Sprint(env.uploads.listed) != "[2 5]" {
		t.Errorf("listed = %v, want [2 5]", env.uploads.listed)
	}

	w := env.do(http.MethodGet, "/api/upload?page=abc", env.token(t), "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad page status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if decode(t, w)["field"] != "page" {
		t.Errorf("field = %v, want page", decode(t, w)["field"])
	}
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, content []byte) (string, *bytes.Buffer) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write(content)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return mw.FormDataContentType(), body
}

func TestCreateUpload(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t)

	ct, body := multipartUpload(t, map[string]string{
		"country":                  "KEN",
		"dataset":                  "geolocation",
		"column_to_schema_mapping": `{"lat":"latitude"}`,
	}, "schools.csv", []byte("lat,lon\n1,2\n"))
	w := env.do(http.MethodPost, "/api/upload", tok, ct, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (%s)", w.Code, http.StatusCreated, w.Body.String())
	}
	in := env.uploads.created[0]
	if in.Filename != "schools.csv" || in.ColumnToSchemaMapping["lat"] != "latitude" || in.Size != 12 {
		t.Errorf("CreateInput = %+v", in)
	}

	tests := []struct {
		name   string
		fields map[string]string
		file   string
		data   []byte
	}{
		{"oversized", map[string]string{"country": "KEN", "dataset": "geolocation"}, "big.csv", bytes.Repeat([]byte("a"), 65)},
		{"missing file", map[string]string{"country": "KEN"}, "", nil},
		{"bad mapping", map[string]string{"country": "KEN", "column_to_schema_mapping": "[1"}, "a.csv", []byte("a\n")},
		{"service validation", map[string]string{"country": "XXX", "dataset": "geolocation"}, "a.csv", []byte("a\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(env.uploads.created)
			ct, body := multipartUpload(t, tt.fields, tt.file, tt.data)
			w := env.do(http.MethodPost, "/api/upload", tok, ct, body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d (%s)", w.Code, http.StatusBadRequest, w.Body.String())
			}
			if tt.name != "service validation" && len(env.uploads.created) != before {
				t.Errorf("service was called for a request rejected by the handler")
			}
		})
	}
}

func TestGetApprovalRequest(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/approval-requests/detail/school-coverage/KEN_school_coverage.csv?page=1&page_size=10",
		env.token(t, "Kenya-School Coverage"), "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if env.approvals.gotSubpath != "school-coverage/KEN_school_coverage.csv" {
		t.Errorf("subpath = %q", env.approvals.gotSubpath)
	}

	w = env.do(http.MethodGet, "/api/approval-requests/detail/school-coverage/KEN_school_coverage.csv",
		env.token(t, "Brazil-School Coverage"), "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unauthorized status = %d, want %d", w.Code, http.StatusNotFound)
	}

	w = env.do(http.MethodGet, "/api/approval-requests/detail/school-coverage/KEN_broken.csv", env.token(t, "Admin"), "", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("malformed status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}

func TestDirectoryErrors(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "Admin")

	w := env.do(http.MethodGet, "/api/groups/g-1", tok, "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if msg := decode(t, w)["error"]; msg != "Resource 'g-1' does not exist" {
		t.Errorf("error = %v", msg)
	}

	w = env.do(http.MethodPost, "/api/groups/g-1/members", tok, "application/json",
		strings.NewReader(`{"user_ids":["a","b","c","d"]}`))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	if responses, _ := decode(t, w)["responses"].([]interface{}); len(responses) != 3 {
		t.Errorf("responses = %v, want 3 partial responses", responses)
	}
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err  error
		want int
	}{
		{perrors.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", perrors.ErrForbidden), http.StatusForbidden},
		{perrors.ErrFileTooLarge, http.StatusBadRequest},
		{perrors.ErrInvalidFileFormat, http.StatusBadRequest},
		{perrors.NewRetryableError(perrors.ErrExternalAPITimeout, "token"), http.StatusGatewayTimeout},
		{perrors.UpstreamError{StatusCode: http.StatusConflict, Message: "exists"}, http.StatusConflict},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/api/x", nil)
		respondError(c, tt.err)
		if w.Code != tt.want {
			t.Errorf("respondError(%v) status = %d, want %d", tt.err, w.Code, tt.want)
		}
	}
}

func TestSetupSPA(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>shell</html>"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o600); err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	SetupSPA(r, dir)

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/upload/abc", http.StatusOK, "shell"},
		{"/app.js", http.StatusOK, "console.log"},
		{"/../../etc/passwd", http.StatusOK, "shell"},
		{"/upload/../../app.js", http.StatusOK, "console.log"},
		{"/api/unknown", http.StatusNotFound, "Not found"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if w.Code != tt.wantCode || !strings.Contains(w.Body.String(), tt.wantBody) {
			t.Errorf("GET %s = %d %q, want %d containing %q", tt.path, w.Code, w.Body.String(), tt.wantCode, tt.wantBody)
		}
	}
}
