package organization

type CreateRequest struct {
	Name string `json:"name"`
}

type CreateResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}
