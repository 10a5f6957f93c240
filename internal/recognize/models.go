package recognize

import (
	"fmt"
	"os"
	"strings"

	"podscribe/internal/domain"
)

var modelCatalog = []domain.ModelOption{
	{ID: "tiny.en", Name: "Tiny (English)", SizeLabel: "~75 MB", Description: "Fastest, English-only model.", EnglishOnly: true},
	{ID: "tiny", Name: "Tiny (Multilingual)", SizeLabel: "~75 MB", Description: "Fastest multilingual model."},
	{ID: "base.en", Name: "Base (English)", SizeLabel: "~142 MB", Description: "Balanced speed/quality, English-only.", EnglishOnly: true},
	{ID: "base", Name: "Base (Multilingual)", SizeLabel: "~142 MB", Description: "Balanced speed/quality, multilingual."},
	{ID: "small.en", Name: "Small (English)", SizeLabel: "~466 MB", Description: "Higher quality, English-only.", EnglishOnly: true},
	{ID: "small", Name: "Small (Multilingual)", SizeLabel: "~466 MB", Description: "Higher quality multilingual model."},
	{ID: "medium.en", Name: "Medium (English)", SizeLabel: "~1.5 GB", Description: "High quality, English-only.", EnglishOnly: true},
	{ID: "medium", Name: "Medium (Multilingual)", SizeLabel: "~1.5 GB", Description: "High quality multilingual model."},
	{ID: "large-v1", Name: "Large v1", SizeLabel: "~2.9 GB", Description: "First large multilingual model."},
	{ID: "large-v2", Name: "Large v2", SizeLabel: "~2.9 GB", Description: "Very high quality multilingual model."},
	{ID: "large-v3", Name: "Large v3", SizeLabel: "~2.9 GB", Description: "Latest large multilingual model."},
	{ID: "large", Name: "Large", SizeLabel: "~2.9 GB", Description: "Alias for the newest large model."},
	{ID: "large-v3-turbo", Name: "Large v3 Turbo", SizeLabel: "~1.6 GB", Description: "Faster large-v3 variant."},
	{ID: "turbo", Name: "Turbo", SizeLabel: "~1.6 GB", Description: "Alias for large-v3-turbo."},
}

// Models returns a copy of the built-in model catalog.
func Models() []domain.ModelOption {
	models := make([]domain.ModelOption, len(modelCatalog))
	copy(models, modelCatalog)
	return models
}

// LookupModel finds a catalog entry by ID.
func LookupModel(id string) (domain.ModelOption, bool) {
	for _, model := range modelCatalog {
		if model.ID == id {
			return model, true
		}
	}
	return domain.ModelOption{}, false
}

// ValidateModel accepts a catalog ID or a path to an existing model file.
func ValidateModel(model string) error {
	id := strings.TrimSpace(model)
	if id == "" {
		return fmt.Errorf("model id is required")
	}
	if _, ok := LookupModel(id); ok {
		return nil
	}

	info, err := os.Stat(id)
	if err != nil {
		return fmt.Errorf("unknown model %q: not a catalog id and not an existing file", id)
	}
	if info.IsDir() {
		return fmt.Errorf("model path is a directory: %s", id)
	}
	return nil
}
