package dto

// AddPromptRequest represents the request to add a single prompt
type AddPromptRequest struct {
	ClientID uint   `json:"-"`
	Text     string `json:"text" validate:"required,min=1"`
	Category string `json:"category,omitempty"`
}

// AddManyPromptsRequest represents the request to add a batch of prompts.
// Identical texts are not deduplicated; that is the caller's choice.
type AddManyPromptsRequest struct {
	ClientID uint     `json:"-"`
	Texts    []string `json:"texts" validate:"required,min=1,dive,min=1"`
	Category string   `json:"category,omitempty"`
}

// PromptDTO represents a prompt in responses
type PromptDTO struct {
	ID         uint   `json:"id"`
	UUID       string `json:"uuid"`
	ClientID   uint   `json:"client_id"`
	Text       string `json:"text"`
	Category   string `json:"category"`
	NicheLevel string `json:"niche_level"`
	Active     bool   `json:"active"`
	CreatedAt  string `json:"created_at"`
}

// ClearPromptsResponse reports the outcome of a working-set reset
type ClearPromptsResponse struct {
	Message        string `json:"message"`
	PromptsRemoved int64  `json:"prompts_removed"`
}
