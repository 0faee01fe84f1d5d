package session

import "time"

type OrganizationSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type ValidateResponse struct {
	Valid          bool                  `json:"valid"`
	UserID         string                `json:"userId"`
	Email          string                `json:"email"`
	OrganizationID string                `json:"organizationId"`
	Organizations  []OrganizationSummary `json:"organizations"`
	ExpiresAt      time.Time             `json:"expiresAt"`
}

type RefreshResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type RevokeResponse struct {
	Success bool `json:"success"`
}
