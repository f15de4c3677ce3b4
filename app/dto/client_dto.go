package dto

// AddClientRequest represents the request to register a new brand
type AddClientRequest struct {
	BrandName   string   `json:"brand_name" validate:"required,min=1,max=255"`
	BrandTags   []string `json:"brand_tags,omitempty"`
	Competitors []string `json:"competitors,omitempty"`
	Locale      string   `json:"locale,omitempty"`
}

// ClientDTO represents a client in responses
type ClientDTO struct {
	ID          uint     `json:"id"`
	UUID        string   `json:"uuid"`
	BrandName   string   `json:"brand_name"`
	BrandTags   []string `json:"brand_tags"`
	Competitors []string `json:"competitors"`
	Locale      string   `json:"locale"`
	IsCurrent   bool     `json:"is_current"`
	CreatedAt   string   `json:"created_at"`
}

// DeleteClientResponse reports the outcome of a client deletion
type DeleteClientResponse struct {
	Message        string `json:"message"`
	NewCurrentID   uint   `json:"new_current_id"`
	RemainingCount int    `json:"remaining_count"`
}
