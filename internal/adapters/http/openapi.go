package httpadapter

import (
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openapiSpec []byte

// validateContract parses the embedded API contract and checks the routes
// the router serves are all declared in it.
func validateContract() error {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return fmt.Errorf("parse api contract: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return fmt.Errorf("validate api contract: %w", err)
	}

	required := []string{
		"/healthz",
		"/v1/cases",
		"/v1/cases/{case_id}",
		"/v1/cases/{case_id}/review",
		"/v1/evidence/query",
		"/metrics",
	}
	for _, path := range required {
		if doc.Paths.Value(path) == nil {
			return fmt.Errorf("api contract missing path: %s", path)
		}
	}
	return nil
}
