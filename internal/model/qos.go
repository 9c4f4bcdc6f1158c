package model

import "time"

type AuthorizationType string

const (
	AuthorizationNone        AuthorizationType = "NONE"
	AuthorizationBearerToken AuthorizationType = "BEARER_TOKEN"
	AuthorizationBasicAuth   AuthorizationType = "BASIC_AUTH"
	AuthorizationAPIKey      AuthorizationType = "API_KEY"
)

type PaginationType string

const (
	PaginationNone        PaginationType = "NONE"
	PaginationPageNumber  PaginationType = "PAGE_NUMBER"
	PaginationLimitOffset PaginationType = "LIMIT_OFFSET"
)

type RequestMethod string

const (
	RequestMethodGet  RequestMethod = "GET"
	RequestMethodPost RequestMethod = "POST"
)

// APIConfiguration describes how a polled school API is called. It is embedded by value
// in both SchoolList and SchoolConnectivity.
type APIConfiguration struct {
	APIEndpoint                  string            `json:"api_endpoint"`
	RequestMethod                RequestMethod     `json:"request_method"`
	AuthorizationType            AuthorizationType `json:"authorization_type"`
	BearerAuthBearerToken        *string           `json:"bearer_auth_bearer_token,omitempty"`
	BasicAuthUsername            *string           `json:"basic_auth_username,omitempty"`
	BasicAuthPassword            *string           `json:"basic_auth_password,omitempty"`
	APIAuthAPIKey                *string           `json:"api_auth_api_key,omitempty"`
	APIAuthAPIValue              *string           `json:"api_auth_api_value,omitempty"`
	PaginationType               PaginationType    `json:"pagination_type"`
	PageNumberKey                *string           `json:"page_number_key,omitempty"`
	PageOffsetKey                *string           `json:"page_offset_key,omitempty"`
	PageSizeKey                  *string           `json:"page_size_key,omitempty"`
	PageStartsWith               *int              `json:"page_starts_with,omitempty"`
	Size                         *int              `json:"size,omitempty"`
	QueryParameters              *string           `json:"query_parameters,omitempty"`
	RequestBody                  *string           `json:"request_body,omitempty"`
	DataKey                      *string           `json:"data_key,omitempty"`
	SchoolIDKey                  string            `json:"school_id_key"`
	Enabled                      bool              `json:"enabled"`
	ErrorMessage                 *string           `json:"error_message,omitempty"`
	DateLastIngested             *time.Time        `json:"date_last_ingested,omitempty"`
	DateLastSuccessfullyIngested *time.Time        `json:"date_last_successfully_ingested,omitempty"`
}

type SchoolList struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Country   string           `json:"country"`
	UserID    string           `json:"user_id"`
	UserEmail string           `json:"user_email"`
	Config    APIConfiguration `json:"config"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type SchoolConnectivity struct {
	ID                        string           `json:"id"`
	SchoolListID              string           `json:"school_list_id"`
	SchoolIDSend              string           `json:"school_id_send"`
	IngestionFrequencyMinutes int              `json:"ingestion_frequency_minutes"`
	Config                    APIConfiguration `json:"config"`
	CreatedAt                 time.Time        `json:"created_at"`
	UpdatedAt                 time.Time        `json:"updated_at"`
}
