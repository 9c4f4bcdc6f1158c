package qos

import (
	"context"
	"encoding/json"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ingestion-portal/internal/auth"
	"ingestion-portal/internal/country"
	"ingestion-portal/internal/db"
	"ingestion-portal/internal/logger"
	"ingestion-portal/internal/model"
	"ingestion-portal/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type SchoolListInput struct {
	Name    string                 `json:"name" binding:"required"`
	Country string                 `json:"country" binding:"required"`
	Config  model.APIConfiguration `json:"config"`
}

type ConnectivityInput struct {
	SchoolIDSend              string                 `json:"school_id_send"`
	IngestionFrequencyMinutes int                    `json:"ingestion_frequency_minutes"`
	Config                    model.APIConfiguration `json:"config"`
}

// Service stores the polled school API configurations.
type Service struct {
	repo  db.QoSRepository
	now   func() time.Time
	newID func() string
	log   zerolog.Logger
}

func NewService(repo db.QoSRepository) *Service {
	return &Service{
		repo:  repo,
		now:   time.Now,
		newID: uuid.NewString,
		log:   logger.Component("qos"),
	}
}

func (s *Service) ListSchoolLists(ctx context.Context, page, pageSize int) (*model.Page[model.SchoolList], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	if page > math.MaxInt/pageSize {
		page = math.MaxInt / pageSize
	}
	lists, total, err := s.repo.ListSchoolLists(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return &model.Page[model.SchoolList]{Data: lists, Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func (s *Service) GetSchoolList(ctx context.Context, id string) (*model.SchoolList, error) {
	return s.repo.GetSchoolList(ctx, id)
}

func (s *Service) CreateSchoolList(ctx context.Context, p *auth.Principal, in SchoolListInput) (*model.SchoolList, error) {
	iso3, err := validateSchoolList(in)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Second)
	list := &model.SchoolList{
		ID:        s.newID(),
		Name:      strings.TrimSpace(in.Name),
		Country:   iso3,
		UserID:    p.ID,
		UserEmail: p.Email,
		Config:    in.Config,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateSchoolList(ctx, list); err != nil {
		return nil, err
	}
	s.log.Info().Str("school_list_id", list.ID).Str("country", list.Country).Msg("School list created")
	return list, nil
}

func (s *Service) UpdateSchoolList(ctx context.Context, id string, in SchoolListInput) (*model.SchoolList, error) {
	iso3, err := validateSchoolList(in)
	if err != nil {
		return nil, err
	}

	list, err := s.repo.GetSchoolList(ctx, id)
	if err != nil {
		return nil, err
	}
	list.Name = strings.TrimSpace(in.Name)
	list.Country = iso3
	list.Config = in.Config
	list.UpdatedAt = s.now().UTC().Truncate(time.Second)

	if err := s.repo.UpdateSchoolList(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Service) GetConnectivity(ctx context.Context, schoolListID string) (*model.SchoolConnectivity, error) {
	return s.repo.GetSchoolConnectivity(ctx, schoolListID)
}

// PutConnectivity creates or replaces the connectivity configuration of a school list.
func (s *Service) PutConnectivity(ctx context.Context, schoolListID string, in ConnectivityInput) (*model.SchoolConnectivity, error) {
	if _, err := s.repo.GetSchoolList(ctx, schoolListID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.SchoolIDSend) == "" {
		return nil, errors.NewValidationError("school_id_send", in.SchoolIDSend, "must not be empty")
	}
	if in.IngestionFrequencyMinutes <= 0 {
		return nil, errors.NewValidationError("ingestion_frequency_minutes", in.IngestionFrequencyMinutes, "must be positive")
	}
	if err := ValidateAPIConfiguration(in.Config); err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Second)
	conn := &model.SchoolConnectivity{
		ID:                        s.newID(),
		SchoolListID:              schoolListID,
		SchoolIDSend:              in.SchoolIDSend,
		IngestionFrequencyMinutes: in.IngestionFrequencyMinutes,
		Config:                    in.Config,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	if err := s.repo.UpsertSchoolConnectivity(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

func validateSchoolList(in SchoolListInput) (string, error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", errors.NewValidationError("name", in.Name, "must not be empty")
	}
	iso3, _, ok := country.Lookup(in.Country)
	if !ok {
		return "", errors.NewValidationError("country", in.Country, "unknown ISO3 country code")
	}
	return iso3, ValidateAPIConfiguration(in.Config)
}

// ValidateAPIConfiguration checks that the credentials and paging keys required by the
// selected authorization and pagination types are present.
func ValidateAPIConfiguration(c model.APIConfiguration) error {
	u, err := url.Parse(c.APIEndpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.NewValidationError("api_endpoint", c.APIEndpoint, "must be an absolute http(s) URL")
	}

	switch c.RequestMethod {
	case model.RequestMethodGet, model.RequestMethodPost:
	default:
		return errors.NewValidationError("request_method", c.RequestMethod, "must be GET or POST")
	}

	switch c.AuthorizationType {
	case model.AuthorizationNone:
	case model.AuthorizationBearerToken:
		if empty(c.BearerAuthBearerToken) {
			return errors.NewValidationError("bearer_auth_bearer_token", nil, "required for BEARER_TOKEN")
		}
	case model.AuthorizationBasicAuth:
		if empty(c.BasicAuthUsername) || empty(c.BasicAuthPassword) {
			return errors.NewValidationError("basic_auth_username", nil, "username and password required for BASIC_AUTH")
		}
	case model.AuthorizationAPIKey:
		if empty(c.APIAuthAPIKey) || empty(c.APIAuthAPIValue) {
			return errors.NewValidationError("api_auth_api_key", nil, "key and value required for API_KEY")
		}
	default:
		return errors.NewValidationError("authorization_type", c.AuthorizationType, "unsupported authorization type")
	}

	switch c.PaginationType {
	case model.PaginationNone:
	case model.PaginationPageNumber:
		if empty(c.PageNumberKey) {
			return errors.NewValidationError("page_number_key", nil, "required for PAGE_NUMBER")
		}
	case model.PaginationLimitOffset:
		if empty(c.PageOffsetKey) {
			return errors.NewValidationError("page_offset_key", nil, "required for LIMIT_OFFSET")
		}
	default:
		return errors.NewValidationError("pagination_type", c.PaginationType, "unsupported pagination type")
	}
	if c.PaginationType != model.PaginationNone && (c.Size == nil || *c.Size <= 0) {
		return errors.NewValidationError("size", c.Size, "a positive page size is required when paginating")
	}

	for field, raw := range map[string]*string{"query_parameters": c.QueryParameters, "request_body": c.RequestBody} {
		if !empty(raw) && !json.Valid([]byte(*raw)) {
			return errors.NewValidationError(field, *raw, "must be valid JSON")
		}
	}

	if strings.TrimSpace(c.SchoolIDKey) == "" {
		return errors.NewValidationError("school_id_key", c.SchoolIDKey, "must not be empty")
	}
	return nil
}

func empty(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
