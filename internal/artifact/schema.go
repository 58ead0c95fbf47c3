package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// documentSchema is the minimal shape every result document must have before
// it is attached to a job.
const documentSchema = `{
  "type": "object",
  "required": ["invoked_at", "date_checked", "args", "result"],
  "properties": {
    "invoked_at": {"type": "string"},
    "date_checked": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
    "args": {"type": "object", "required": ["kind"]},
    "result": {
      "type": "object",
      "oneOf": [
        {
          "required": ["cases_found"],
          "properties": {
            "cases_found": {
              "type": "array",
              "items": {"type": "object", "required": ["row_text", "serial", "court"]}
            }
          }
        },
        {
          "required": ["cause_list"],
          "properties": {
            "cause_list": {
              "type": "object",
              "required": ["state", "district", "complex", "date", "judges"],
              "properties": {
                "judges": {
                  "type": "array",
                  "items": {"type": "object", "required": ["judge_text"]}
                }
              }
            }
          }
        }
      ]
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("result_document.json", documentSchema)

// ValidateDocument checks raw JSON against the result document shape.
func ValidateDocument(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	if err := compiledSchema.Validate(v); err != nil {
		return fmt.Errorf("document does not match schema: %w", err)
	}
	return nil
}

// ReadResult loads and shape-checks a result document by its name relative
// to the output dir.
func (s *Store) ReadResult(name string) (*Document, error) {
	name = filepath.FromSlash(strings.TrimPrefix(name, "/"))
	if !filepath.IsLocal(name) {
		return nil, fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if err := ValidateDocument(data); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return &doc, nil
}
