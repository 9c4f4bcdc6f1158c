package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"ingestion-portal/internal/model"
	perrors "ingestion-portal/pkg/errors"
)

func TestQoSRepository_SchoolListRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewQoSRepository(setupTestDB(t))

	token := "secret-token"
	created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	list := &model.SchoolList{
		ID:        "list-1",
		Name:      "Kenya schools",
		Country:   "KEN",
		UserID:    "u-1",
		UserEmail: "ops@example.org",
		Config: model.APIConfiguration{
			APIEndpoint:           "https://schools.example.org/api",
			RequestMethod:         model.RequestMethodGet,
			AuthorizationType:     model.AuthorizationBearerToken,
			BearerAuthBearerToken: &token,
			PaginationType:        model.PaginationNone,
			SchoolIDKey:           "school_id",
			Enabled:               true,
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := repo.CreateSchoolList(ctx, list); err != nil {
		t.Fatalf("CreateSchoolList() error = %v", err)
	}

	got, err := repo.GetSchoolList(ctx, "list-1")
	if err != nil {
		t.Fatalf("GetSchoolList() error = %v", err)
	}
	if got.Config.APIEndpoint != list.Config.APIEndpoint {
		t.Errorf("APIEndpoint = %q, want %q", got.Config.APIEndpoint, list.Config.APIEndpoint)
	}
	if got.Config.BearerAuthBearerToken == nil || *got.Config.BearerAuthBearerToken != token {
		t.Errorf("BearerAuthBearerToken = %v, want %q", got.Config.BearerAuthBearerToken, token)
	}

	got.Name = "Kenya primary schools"
	got.Config.Enabled = false
	got.UpdatedAt = created.Add(time.Hour)
	if err := repo.UpdateSchoolList(ctx, got); err != nil {
		t.Fatalf("UpdateSchoolList() error = %v", err)
	}

	lists, total, err := repo.ListSchoolLists(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListSchoolLists() error = %v", err)
	}
	if total != 1 || lists[0].Name != "Kenya primary schools" || lists[0].Config.Enabled {
		t.Errorf("ListSchoolLists() = %+v (total %d), want updated list", lists, total)
	}

	if _, err := repo.GetSchoolList(ctx, "missing"); !errors.Is(err, perrors.ErrNotFound) {
		t.Errorf("GetSchoolList(missing) error = %v, want ErrNotFound", err)
	}
}

func TestQoSRepository_UpsertConnectivity(t *testing.T) {
	ctx := context.Background()
	repo := NewQoSRepository(setupTestDB(t))
	created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	if err := repo.CreateSchoolList(ctx, &model.SchoolList{ID: "list-1", Name: "n", Country: "KEN", UserID: "u", UserEmail: "e",
		CreatedAt: created, UpdatedAt: created}); err != nil {
		t.Fatalf("CreateSchoolList() error = %v", err)
	}

	if _, err := repo.GetSchoolConnectivity(ctx, "list-1"); !errors.Is(err, perrors.ErrNotFound) {
		t.Fatalf("GetSchoolConnectivity() error = %v, want ErrNotFound", err)
	}

	conn := &model.SchoolConnectivity{
		ID:                        "conn-1",
		SchoolListID:              "list-1",
		SchoolIDSend:              "giga_id_school",
		IngestionFrequencyMinutes: 60,
		Config:                    model.APIConfiguration{APIEndpoint: "https://speed.example.org", SchoolIDKey: "id"},
		CreatedAt:                 created,
		UpdatedAt:                 created,
	}
	if err := repo.UpsertSchoolConnectivity(ctx, conn); err != nil {
		t.Fatalf("UpsertSchoolConnectivity() error = %v", err)
	}

	replacement := &model.SchoolConnectivity{
		ID:                        "conn-2",
		SchoolListID:              "list-1",
		SchoolIDSend:              "giga_id_school",
		IngestionFrequencyMinutes: 15,
		Config:                    model.APIConfiguration{APIEndpoint: "https://speed.example.org/v2", SchoolIDKey: "id"},
		UpdatedAt:                 created.Add(time.Hour),
	}
	if err := repo.UpsertSchoolConnectivity(ctx, replacement); err != nil {
		t.Fatalf("UpsertSchoolConnectivity() error = %v", err)
	}
	if replacement.ID != "conn-1" {
		t.Errorf("upsert ID = %q, want existing %q", replacement.ID, "conn-1")
	}

	got, err := repo.GetSchoolConnectivity(ctx, "list-1")
	if err != nil {
		t.Fatalf("GetSchoolConnectivity() error = %v", err)
	}
	if got.IngestionFrequencyMinutes != 15 || got.Config.APIEndpoint != "https://speed.example.org/v2" {
		t.Errorf("GetSchoolConnectivity() = %+v, want updated row", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
}
