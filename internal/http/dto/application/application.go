package application

import "time"

type CreateRequest struct {
	OrganizationID string `json:"organizationId"`
	Name           string `json:"name"`
}

type CreateResponse struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"createdAt"`
}
