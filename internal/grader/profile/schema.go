package profile

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON Schema of the profile file format, usable by
// editors to validate custom profiles.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	s := reflector.Reflect(&Profile{})
	s.Title = "apigrader evaluation profile"
	s.Description = "Weight table of scoring categories and the checks that award points into them."
	return json.MarshalIndent(s, "", "  ")
}
