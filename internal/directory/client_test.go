package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ingestion-portal/internal/config"
	"ingestion-portal/internal/model"
	perrors "ingestion-portal/pkg/errors"
)

type fakeDirectory struct {
	server      *httptest.Server
	mux         *http.ServeMux
	tokenCalls  int32
	batchChunks [][]model.BatchRequestItem
}

func newFakeDirectory(t *testing.T) *fakeDirectory {
	t.Helper()
	f := &fakeDirectory{mux: http.NewServeMux()}
	f.mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(model.DirectoryTokenResponse{AccessToken: "tok", ExpiresIn: 3600, TokenType: "Bearer"})
	})
	f.server = httptest.NewServer(f.mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeDirectory) config() config.DirectoryConfig {
	return config.DirectoryConfig{
		BaseURL:       f.server.URL + "/v1.0",
		TokenURL:      f.server.URL + "/token",
		ClientID:      "client",
		ClientSecret:  "secret",
		Scope:         "https://graph.example.org/.default",
		Timeout:       5 * time.Second,
		BatchSize:     3,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}
}

func requireBearer(t *testing.T, r *http.Request) {
	t.Helper()
	if got := r.Header.Get("Authorization"); got != "Bearer tok" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer tok")
	}
}

func TestClient_ListGroupsFollowsNextLinkAndCachesToken(t *testing.T) {
	f := newFakeDirectory(t)
	f.mux.HandleFunc("/v1.0/groups", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		if r.URL.Query().Get("page") == "2" {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"value": []model.DirectoryGroup{{ID: "g2", DisplayName: "Kenya-School Coverage"}},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"value":           []model.DirectoryGroup{{ID: "g1", DisplayName: "Admin"}},
			"@odata.nextLink": f.server.URL + "/v1.0/groups?page=2",
		})
	})

	client := NewClient(f.config())
	groups, err := client.ListGroups(context.Background())
	if err != nil {
		t.Fatalf("ListGroups() error = %v", err)
	}
	if len(groups) != 2 || groups[1].DisplayName != "Kenya-School Coverage" {
		t.Errorf("ListGroups() = %+v, want both pages", groups)
	}

	if _, err := client.ListGroups(context.Background()); err != nil {
		t.Fatalf("ListGroups() error = %v", err)
	}
	if calls := atomic.LoadInt32(&f.tokenCalls); calls != 1 {
		t.Errorf("token endpoint called %d times, want 1", calls)
	}
}

func TestClient_UpstreamErrorCarriesStatusAndMessage(t *testing.T) {
	f := newFakeDirectory(t)
	f.mux.HandleFunc("/v1.0/groups/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"Request_ResourceNotFound","message":"Resource 'missing' does not exist"}}`))
	})

	_, err := NewClient(f.config()).GetGroup(context.Background(), "missing")

	var upstream perrors.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("GetGroup() error = %v, want UpstreamError", err)
	}
	if upstream.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want %d", upstream.StatusCode, http.StatusNotFound)
	}
	if upstream.Message != "Resource 'missing' does not exist" {
		t.Errorf("Message = %q", upstream.Message)
	}
}

func TestClient_RetriesThrottledRequests(t *testing.T) {
	f := newFakeDirectory(t)
	var calls int32
	f.mux.HandleFunc("/v1.0/users/u1", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(model.DirectoryUser{ID: "u1", UserPrincipalName: "u1@example.org"})
	})

	user, err := NewClient(f.config()).GetUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if user.Email() != "u1@example.org" {
		t.Errorf("Email() = %q, want %q", user.Email(), "u1@example.org")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func batchItems(n int) []model.BatchRequestItem {
	items := make([]model.BatchRequestItem, n)
	for i := range items {
		items[i] = model.BatchRequestItem{ID: string(rune('a' + i)), Method: http.MethodDelete, URL: "/groups/g/members/u/$ref"}
	}
	return items
}

func TestClient_BatchChunksOfThree(t *testing.T) {
	f := newFakeDirectory(t)
	f.mux.HandleFunc("/v1.0/$batch", func(w http.ResponseWriter, r *http.Request) {
		var req model.BatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.batchChunks = append(f.batchChunks, req.Requests)

		resp := model.BatchResponse{}
		for _, item := range req.Requests {
			resp.Responses = append(resp.Responses, model.BatchResponseItem{ID: item.ID, Status: http.StatusNoContent})
		}
		json.NewEncoder(w).Encode(resp)
	})

	responses, err := NewClient(f.config()).Batch(context.Background(), batchItems(7))
	if err != nil {
		t.Fatalf("Batch() error = %v", err)
	}
	if len(responses) != 7 {
		t.Errorf("len(responses) = %d, want 7", len(responses))
	}

	wantSizes := []int{3, 3, 1}
	if len(f.batchChunks) != len(wantSizes) {
		t.Fatalf("chunks = %d, want %d", len(f.batchChunks), len(wantSizes))
	}
	for i, size := range wantSizes {
		if len(f.batchChunks[i]) != size {
			t.Errorf("chunk %d size = %d, want %d", i, len(f.batchChunks[i]), size)
		}
	}
	if f.batchChunks[1][0].ID != "d" {
		t.Errorf("second chunk starts with %q, want %q", f.batchChunks[1][0].ID, "d")
	}
}

func TestClient_BatchFailureKeepsEarlierResponses(t *testing.T) {
	f := newFakeDirectory(t)
	var chunk int32
	f.mux.HandleFunc("/v1.0/$batch", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&chunk, 1) == 2 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"bad batch"}}`))
			return
		}
		var req model.BatchRequest
		json.NewDecoder(r.Body).Decode(&req)
		resp := model.BatchResponse{}
		for _, item := range req.Requests {
			resp.Responses = append(resp.Responses, model.BatchResponseItem{ID: item.ID, Status: http.StatusNoContent})
		}
		json.NewEncoder(w).Encode(resp)
	})

	responses, err := NewClient(f.config()).Batch(context.Background(), batchItems(7))
	if err == nil {
		t.Fatalf("Batch() expected error")
	}
	if len(responses) != 3 {
		t.Errorf("len(responses) = %d, want 3 from the first chunk", len(responses))
	}
	if chunk != 2 {
		t.Errorf("chunks sent = %d, want processing to stop at 2", chunk)
	}
}
