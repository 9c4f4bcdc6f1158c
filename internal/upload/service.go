package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ingestion-portal/internal/auth"
	"ingestion-portal/internal/config"
	"ingestion-portal/internal/country"
	"ingestion-portal/internal/db"
	"ingestion-portal/internal/filecheck"
	"ingestion-portal/internal/logger"
	"ingestion-portal/internal/model"
	"ingestion-portal/internal/storage"
	perrors "ingestion-portal/pkg/errors"
)

const timestampLayout = "20060102-150405"

// Publisher hands work to out-of-process consumers.
type Publisher interface {
	EnqueueDQJob(ctx context.Context, job model.DQJob) error
	EnqueueNotification(ctx context.Context, job model.NotificationJob) error
}

// CreateInput is a validated-on-create upload request.
type CreateInput struct {
	Filename              string
	Size                  int64
	Data                  []byte
	Country               string
	Dataset               string
	Source                string
	Description           string
	ColumnToSchemaMapping map[string]interface{}
	ColumnLicense         map[string]interface{}
}

// ReconcileResult counts what a reconciliation pass repaired.
type ReconcileResult struct {
	Promoted int `json:"promoted"`
	Removed  int `json:"removed"`
}

type Service struct {
	cfg       *config.Config
	repo      db.UploadRepository
	store     storage.Storage
	validator *filecheck.Validator
	jobs      Publisher
	now       func() time.Time
	newID     func() string
	log       zerolog.Logger
}

func NewService(cfg *config.Config, repo db.UploadRepository, store storage.Storage, jobs Publisher) *Service {
	return &Service{
		cfg:       cfg,
		repo:      repo,
		store:     store,
		validator: filecheck.NewValidator(cfg.Upload),
		jobs:      jobs,
		now:       time.Now,
		newID:     uuid.NewString,
		log:       logger.Component("upload"),
	}
}

// Create validates and stores an upload. The row is written PENDING before the blob and
// promoted to STORED afterwards; a failed blob write deletes the row again.
func (s *Service) Create(ctx context.Context, principal *auth.Principal, in CreateInput) (*model.FileUpload, error) {
	iso3, _, ok := country.Lookup(in.Country)
	if !ok {
		return nil, perrors.NewValidationError("country", in.Country, "unknown ISO3 country code")
	}
	dataset := strings.ToLower(strings.TrimSpace(in.Dataset))
	if dataset == "" {
		return nil, perrors.NewValidationError("dataset", in.Dataset, "must not be empty")
	}

	if _, err := s.validator.Validate(ctx, filecheck.File{
		Filename: in.Filename,
		Dataset:  dataset,
		Size:     in.Size,
		Data:     in.Data,
		Mapping:  in.ColumnToSchemaMapping,
	}); err != nil {
		return nil, err
	}

	unstructured := dataset == s.cfg.Upload.UnstructuredName
	status := model.DQStatusInProgress
	if unstructured {
		status = model.DQStatusSkipped
	}

	upload := &model.FileUpload{
		ID:                    s.newID(),
		UploaderID:            principal.ID,
		UploaderEmail:         principal.Email,
		Country:               iso3,
		Dataset:               dataset,
		OriginalFilename:      filepath.Base(in.Filename),
		ColumnToSchemaMapping: nonNil(in.ColumnToSchemaMapping),
		ColumnLicense:         nonNil(in.ColumnLicense),
		Description:           in.Description,
		DQStatus:              status,
		State:                 model.UploadStatePending,
		CreatedAt:             s.now().UTC().Truncate(time.Second),
	}
	if source := strings.TrimSpace(in.Source); source != "" {
		upload.Source = &source
	}
	upload.UploadPath = s.blobPath(upload, filepath.Ext(in.Filename))

	log := s.log.With().Str("upload_id", upload.ID).Str("path", upload.UploadPath).Logger()

	if err := s.repo.CreateUpload(ctx, upload); err != nil {
		return nil, err
	}

	if err := s.store.Upload(ctx, upload.UploadPath, bytes.NewReader(in.Data)); err != nil {
		log.Error().Err(err).Msg("Blob write failed, removing upload row")
		// The request context may already be done; the compensation must still run.
		if delErr := s.repo.DeleteUpload(context.WithoutCancel(ctx), upload.ID); delErr != nil {
			log.Error().Err(delErr).Msg("Compensating delete failed, reconciliation will remove the row")
		}
		return nil, fmt.Errorf("store upload %s: %w", upload.ID, err)
	}

	if err := s.repo.MarkUploadStored(ctx, upload.ID); err != nil {
		log.Warn().Err(err).Msg("Failed to mark upload stored, reconciliation will promote it")
	} else {
		upload.State = model.UploadStateStored
	}

	if !unstructured {
		job := model.DQJob{UploadID: upload.ID, UploadPath: upload.UploadPath, Dataset: dataset, Country: iso3}
		if err := s.jobs.EnqueueDQJob(ctx, job); err != nil {
			log.Warn().Err(err).Msg("Failed to enqueue data quality job")
		}
	}

	log.Info().Str("dataset", dataset).Str("country", iso3).Int64("size", in.Size).Msg("Upload stored")
	return upload, nil
}

func (s *Service) blobPath(u *model.FileUpload, ext string) string {
	dir := u.Dataset
	if dir != s.cfg.Upload.UnstructuredName && !strings.HasPrefix(dir, "school-") {
		dir = "school-" + dir
	}

	name := fmt.Sprintf("%s_%s_%s", u.ID, u.Country, u.Dataset)
	if u.Source != nil {
		name += "_" + *u.Source
	}
	name += "_" + u.CreatedAt.Format(timestampLayout) + strings.ToLower(ext)

	return path.Join(s.cfg.Storage.UploadsPrefix, dir, u.Country, name)
}

// SweepTimeouts marks uploads whose quality check never reported back as TIMEOUT.
func (s *Service) SweepTimeouts(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.MarkTimedOut(ctx, now.Add(-s.cfg.Upload.TimeoutAfter), s.cfg.Upload.UnstructuredName)
	if err != nil {
		return 0, fmt.Errorf("sweep timeouts: %w", err)
	}
	s.log.Info().Int64("timed_out", n).Msg("Timeout sweep finished")
	return n, nil
}

// Reconcile settles uploads left PENDING by an interrupted Create: rows whose blob exists
// are promoted, the rest are deleted.
func (s *Service) Reconcile(ctx context.Context, now time.Time) (ReconcileResult, error) {
	var result ReconcileResult

	pending, err := s.repo.ListPendingUploads(ctx, now.Add(-s.cfg.Upload.ReconcileGrace))
	if err != nil {
		return result, fmt.Errorf("list pending uploads: %w", err)
	}

	var errs []error
	for _, u := range pending {
		exists, err := s.store.Exists(ctx, u.UploadPath)
		if err != nil {
			errs = append(errs, fmt.Errorf("check %s: %w", u.ID, err))
			continue
		}

		if exists {
			if err := s.repo.MarkUploadStored(ctx, u.ID); err != nil {
				errs = append(errs, err)
				continue
			}
			result.Promoted++
		} else {
			if err := s.repo.DeleteUpload(ctx, u.ID); err != nil {
				errs = append(errs, err)
				continue
			}
			result.Removed++
		}
	}

	s.log.Info().Int("promoted", result.Promoted).Int("removed", result.Removed).Int("failed", len(errs)).Msg("Upload reconciliation finished")
	return result, errors.Join(errs...)
}

// ApplyQualityResult records the outcome reported by the data-quality job.
func (s *Service) ApplyQualityResult(ctx context.Context, result model.DQResult) error {
	if result.Status != model.DQStatusCompleted && result.Status != model.DQStatusError {
		return perrors.NewValidationError("status", result.Status, "must be COMPLETED or ERROR")
	}

	if err := s.repo.UpdateDQResult(ctx, result.UploadID, result.Status, optional(result.ReportPath), optional(result.FullPath)); err != nil {
		return err
	}

	event := s.log.Info()
	if result.Status == model.DQStatusError {
		event = s.log.Warn().Str("error", result.Error)
	}
	event.Str("upload_id", result.UploadID).Str("status", string(result.Status)).Msg("Data quality result applied")
	return nil
}

// List pages through stored uploads. Non-privileged callers only see their own.
func (s *Service) List(ctx context.Context, principal *auth.Principal, caps auth.Capabilities, page, pageSize int) (*model.Page[model.FileUpload], error) {
	page, pageSize = s.normalizePage(page, pageSize)

	filter := db.UploadFilter{}
	if !caps.IsPrivileged() {
		filter.UploaderEmail = principal.Email
	}

	uploads, total, err := s.repo.ListUploads(ctx, filter, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return &model.Page[model.FileUpload]{Data: uploads, Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns one upload. Uploads of other users are reported as missing to non-privileged callers.
func (s *Service) Get(ctx context.Context, principal *auth.Principal, caps auth.Capabilities, id string) (*model.FileUpload, error) {
	u, err := s.repo.GetUpload(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.State != model.UploadStateStored || (!caps.IsPrivileged() && !strings.EqualFold(u.UploaderEmail, principal.Email)) {
		return nil, fmt.Errorf("upload %s: %w", id, perrors.ErrNotFound)
	}
	return u, nil
}

// QualityReport reads the data-quality report of an upload from storage.
func (s *Service) QualityReport(ctx context.Context, principal *auth.Principal, caps auth.Capabilities, id string) ([]byte, error) {
	u, err := s.Get(ctx, principal, caps, id)
	if err != nil {
		return nil, err
	}
	if u.DQReportPath == nil {
		return nil, fmt.Errorf("data quality report for %s: %w", id, perrors.ErrNotFound)
	}

	body, err := s.store.Download(ctx, *u.DQReportPath)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, fmt.Errorf("data quality report for %s: %w", id, perrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

// NotifyUploadSuccess queues the upload confirmation email for the uploader.
func (s *Service) NotifyUploadSuccess(ctx context.Context, principal *auth.Principal, caps auth.Capabilities, id string) error {
	u, err := s.Get(ctx, principal, caps, id)
	if err != nil {
		return err
	}

	job := model.NotificationJob{
		Template:   "upload-success",
		Recipients: []string{u.UploaderEmail},
		Data: map[string]string{
			"upload_id":         u.ID,
			"dataset":           u.Dataset,
			"country":           u.Country,
			"original_filename": u.OriginalFilename,
			"uploaded_at":       u.CreatedAt.Format(time.RFC3339),
			"url":               strings.TrimRight(s.cfg.App.WebURL, "/") + "/upload/" + u.ID,
		},
	}
	return s.jobs.EnqueueNotification(ctx, job)
}

func (s *Service) normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.cfg.Upload.DefaultPageSize
	}
	if pageSize > s.cfg.Upload.MaxPageSize {
		pageSize = s.cfg.Upload.MaxPageSize
	}
	if pageSize > 0 && page > math.MaxInt/pageSize {
		page = math.MaxInt / pageSize
	}
	return page, pageSize
}

func nonNil(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
