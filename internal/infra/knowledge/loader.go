// Package knowledge loads the crop knowledge base from its JSON file.
package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"raaee/internal/domain"
)

// schema accepts a JSON object whose values are all objects: crop name to
// advice record.
const schema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"additionalProperties": {"type": "object"}
}`

// Load reads and validates the knowledge base at path. A missing or invalid
// file is logged and yields an empty base so the service still answers.
func Load(path string, logger *slog.Logger) *domain.KnowledgeBase {
	kb, err := Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("knowledge base not found, continuing without crop data", "path", path)
		} else {
			logger.Error("failed to load knowledge base, continuing without crop data", "path", path, "error", err)
		}
		return domain.NewKnowledgeBase(nil)
	}
	logger.Info("knowledge base loaded", "path", path, "crops", kb.Len())
	return kb
}

// Read is Load without the fallback.
func Read(path string) (*domain.KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading knowledge base: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*domain.KnowledgeBase, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validating knowledge base: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("knowledge base validation failed: %s", strings.Join(errs, "; "))
	}

	var records map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing knowledge base: %w", err)
	}
	return domain.NewKnowledgeBase(records), nil
}
