package cliauth

import "time"

type InitiateRequest struct {
	CallbackURL string `json:"callbackUrl"`
	Provider    string `json:"provider,omitempty"`
}

type InitiateResponse struct {
	AuthURL  string  `json:"authUrl"`
	State    string  `json:"state"`
	Provider *string `json:"provider"` // null cuando se retorna la URL de selección
}

type CompleteRequest struct {
	State    string `json:"state"`
	Code     string `json:"code"`
	Provider string `json:"provider"`
}

type CompleteResponse struct {
	Token          string    `json:"token"`
	UserID         string    `json:"userId"`
	Email          string    `json:"email"`
	OrganizationID string    `json:"organizationId"`
	ExpiresAt      time.Time `json:"expiresAt"`
}
