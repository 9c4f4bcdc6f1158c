package approval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"ingestion-portal/internal/auth"
	"ingestion-portal/internal/changeset"
	"ingestion-portal/internal/config"
	"ingestion-portal/internal/country"
	"ingestion-portal/internal/db"
	"ingestion-portal/internal/logger"
	"ingestion-portal/internal/model"
	"ingestion-portal/internal/storage"
	perrors "ingestion-portal/pkg/errors"

	"github.com/rs/zerolog"
)

// Detail is one page of a reduced change set.
type Detail struct {
	Info       model.ChangeSetInfo `json:"info"`
	Columns    []string            `json:"columns"`
	Data       []changeset.Row     `json:"data"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalCount int                 `json:"total_count"`
}

type Service struct {
	cfg   *config.Config
	store storage.Storage
	repo  db.ApprovalRepository
	now   func() time.Time
	log   zerolog.Logger
}

func NewService(cfg *config.Config, store storage.Storage, repo db.ApprovalRepository) *Service {
	return &Service{
		cfg:   cfg,
		store: store,
		repo:  repo,
		now:   time.Now,
		log:   logger.Component("approval"),
	}
}

// List summarizes every change set the caller may review, newest first. Files that cannot be
// parsed or read are skipped.
func (s *Service) List(ctx context.Context, caps auth.Capabilities) ([]model.ChangeSetSummary, error) {
	prefix := strings.TrimSuffix(s.cfg.Storage.ApprovalRequestsPrefix, "/") + "/"
	objects, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list change sets: %w", err)
	}

	requests, err := s.repo.ListApprovalRequests(ctx)
	if err != nil {
		return nil, err
	}
	enabled := make(map[string]bool, len(requests))
	for _, r := range requests {
		enabled[r.Country+"/"+strings.ToLower(r.Dataset)] = r.Enabled
	}

	summaries := []model.ChangeSetSummary{}
	for _, obj := range objects {
		loc, err := ParseSubpath(strings.TrimPrefix(obj.Key, prefix))
		if err != nil {
			s.log.Debug().Str("key", obj.Key).Err(err).Msg("Skipping object")
			continue
		}
		if !caps.CanAccess(loc.CountryName, loc.Dataset) {
			continue
		}

		table, err := s.load(ctx, obj.Key)
		if err != nil {
			s.log.Warn().Err(err).Str("key", obj.Key).Msg("Skipping unreadable change set")
			continue
		}
		summary, err := changeset.Summarize(table)
		if err != nil {
			s.log.Warn().Err(err).Str("key", obj.Key).Msg("Skipping malformed change set")
			continue
		}

		summaries = append(summaries, model.ChangeSetSummary{
			Country:      loc.CountryName,
			CountryKey:   loc.Country,
			Dataset:      loc.Dataset,
			Subpath:      loc.Subpath,
			LastModified: obj.LastModified,
			RowsCount:    summary.Total(),
			RowsAdded:    summary.Inserts,
			RowsUpdated:  summary.Updates,
			RowsDeleted:  summary.Deletes,
			Enabled:      enabled[loc.Country+"/"+strings.ToLower(loc.Dataset)],
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastModified.After(summaries[j].LastModified)
	})
	return summaries, nil
}

// Get returns one page of a reduced change set. Callers without access get ErrNotFound.
func (s *Service) Get(ctx context.Context, caps auth.Capabilities, subpath string, page, pageSize int) (*Detail, error) {
	loc, diff, err := s.open(ctx, caps, subpath)
	if err != nil {
		return nil, err
	}

	page, pageSize = s.normalizePage(page, pageSize)
	summary := summarizeDiff(diff)
	version, timestamp := diff.CommitInfo()

	return &Detail{
		Info: model.ChangeSetInfo{
			Country:     loc.CountryName,
			Dataset:     loc.Dataset,
			Version:     version,
			Timestamp:   timestamp,
			TotalCount:  len(diff.Rows),
			RowsAdded:   summary.Inserts,
			RowsUpdated: summary.Updates,
			RowsDeleted: summary.Deletes,
		},
		Columns:    diff.Columns,
		Data:       changeset.Paginate(diff.Rows, page, pageSize),
		Page:       page,
		PageSize:   pageSize,
		TotalCount: len(diff.Rows),
	}, nil
}

// Approve records the approved row identifiers of a change set and closes its approval request.
func (s *Service) Approve(ctx context.Context, caps auth.Capabilities, principal *auth.Principal, req model.ApproveRequest) (*model.ApprovalRequest, error) {
	loc, diff, err := s.open(ctx, caps, req.Subpath)
	if err != nil {
		return nil, err
	}

	known := map[string]bool{}
	for _, row := range diff.Rows {
		if id, ok := row.Values[s.cfg.Approval.RowIDColumn]; ok {
			known[changeset.CurrentValue(id)] = true
		}
	}
	approved := make([]string, 0, len(req.ApprovedRows))
	seen := map[string]bool{}
	for _, id := range req.ApprovedRows {
		if !known[id] {
			return nil, perrors.NewValidationError("approved_rows", id, "not a row of this change set")
		}
		if !seen[id] {
			seen[id] = true
			approved = append(approved, id)
		}
	}

	data, err := json.Marshal(approved)
	if err != nil {
		return nil, err
	}
	key := loc.ApprovedRowsKey(s.cfg.Storage.ApprovedRowsPrefix)
	if err := s.store.Upload(ctx, key, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("write approved rows: %w", err)
	}

	result, err := s.repo.RecordApproval(ctx, loc.Country, loc.Dataset, principal.ID, principal.Email, s.now())
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("subpath", loc.Subpath).
		Str("approved_by", principal.Email).
		Int("approved_rows", len(approved)).
		Msg("Change set approved")
	return result, nil
}

// SetEnabled opens or closes the approval request of a country/dataset pair.
func (s *Service) SetEnabled(ctx context.Context, req model.SetApprovalEnabledRequest) (*model.ApprovalRequest, error) {
	iso3, _, ok := country.Lookup(req.Country)
	if !ok {
		return nil, perrors.NewValidationError("country", req.Country, "unknown ISO3 country code")
	}
	dataset := strings.TrimSpace(req.Dataset)
	if dataset == "" {
		return nil, perrors.NewValidationError("dataset", req.Dataset, "must not be empty")
	}
	return s.repo.SetApprovalEnabled(ctx, iso3, DatasetName(dataset), req.Enabled)
}

func (s *Service) open(ctx context.Context, caps auth.Capabilities, subpath string) (Location, *changeset.Diff, error) {
	loc, err := ParseSubpath(subpath)
	if err != nil {
		// Only well-formed paths can name a stored change set.
		return Location{}, nil, fmt.Errorf("change set %q (%v): %w", subpath, err, perrors.ErrNotFound)
	}
	if !caps.CanAccess(loc.CountryName, loc.Dataset) {
		return Location{}, nil, fmt.Errorf("change set %s: %w", loc.Subpath, perrors.ErrNotFound)
	}

	table, err := s.load(ctx, loc.Key(s.cfg.Storage.ApprovalRequestsPrefix))
	if err != nil {
		return Location{}, nil, err
	}
	diff, err := changeset.Reduce(table)
	if err != nil {
		return Location{}, nil, fmt.Errorf("change set %s: %w", loc.Subpath, err)
	}
	return loc, diff, nil
}

func (s *Service) load(ctx context.Context, key string) (*changeset.Table, error) {
	body, err := s.store.Download(ctx, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, fmt.Errorf("change set %s: %w", key, perrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return changeset.Read(body)
}

func (s *Service) normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.cfg.Approval.DefaultPageSize
	}
	if pageSize > s.cfg.Approval.MaxPageSize {
		pageSize = s.cfg.Approval.MaxPageSize
	}
	if pageSize > 0 && page > math.MaxInt/pageSize {
		page = math.MaxInt / pageSize
	}
	return page, pageSize
}

func summarizeDiff(diff *changeset.Diff) changeset.Summary {
	var s changeset.Summary
	for _, row := range diff.Rows {
		switch row.ChangeType {
		case changeset.Insert:
			s.Inserts++
		case changeset.Delete:
			s.Deletes++
		default:
			s.Updates++
		}
	}
	return s
}
