package domain

// ModelOption describes one recognition model identifier known to the local backend.
type ModelOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SizeLabel   string `json:"sizeLabel,omitempty"`
	Description string `json:"description,omitempty"`
	EnglishOnly bool   `json:"englishOnly"`
}
