package apikey

import "time"

type CreateRequest struct {
	OrganizationID string   `json:"organizationId"`
	Name           string   `json:"name"`
	Scopes         []string `json:"scopes,omitempty"`
}

type CreateResponse struct {
	Key       string    `json:"key"` // plaintext, se muestra una sola vez
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Scopes    []string  `json:"scopes"`
	CreatedAt time.Time `json:"createdAt"`
}

type KeySummary struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	KeyPreview string     `json:"keyPreview"`
	Scopes     []string   `json:"scopes"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsed   *time.Time `json:"lastUsed"`
}

type ListResponse struct {
	Keys         []KeySummary `json:"keys"`
	Limit        int          `json:"limit"`
	CurrentCount int          `json:"currentCount"`
}

type BindRequest struct {
	APIKeyID string `json:"apiKeyId"`
}

type BindResponse struct {
	Success bool `json:"success"`
}
