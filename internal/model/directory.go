package model

// DirectoryGroup mirrors the group resource of the directory service.
type DirectoryGroup struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Description *string `json:"description"`
}

type DirectoryUser struct {
	ID                string  `json:"id"`
	DisplayName       string  `json:"displayName"`
	GivenName         *string `json:"givenName"`
	Surname           *string `json:"surname"`
	Mail              *string `json:"mail"`
	UserPrincipalName string  `json:"userPrincipalName"`
	AccountEnabled    *bool   `json:"accountEnabled"`
}

// Email prefers the mail attribute and falls back to the principal name.
func (u DirectoryUser) Email() string {
	if u.Mail != nil && *u.Mail != "" {
		return *u.Mail
	}
	return u.UserPrincipalName
}

type DirectoryTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type BatchRequestItem struct {
	ID      string            `json:"id"`
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    interface{}       `json:"body,omitempty"`
}

type BatchResponseItem struct {
	ID     string      `json:"id"`
	Status int         `json:"status"`
	Body   interface{} `json:"body,omitempty"`
}

type BatchRequest struct {
	Requests []BatchRequestItem `json:"requests"`
}

type BatchResponse struct {
	Responses []BatchResponseItem `json:"responses"`
}
