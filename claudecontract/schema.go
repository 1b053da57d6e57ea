package claudecontract

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaFor generates a JSON Schema string for the given Go value, suitable
// for the --json-schema flag. The CLI uses constrained decoding, so the
// final result event's structured output is guaranteed to match the schema.
//
// Example:
//
//	type Review struct {
//	    Verdict string `json:"verdict"`
//	    Notes   string `json:"notes,omitempty"`
//	}
//	schema, err := claudecontract.SchemaFor(Review{})
func SchemaFor(v any) (string, error) {
	reflector := jsonschema.Reflector{
		// Inline definitions so the CLI receives one self-contained schema.
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}

	schema := reflector.Reflect(v)
	data, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}
	return string(data), nil
}
