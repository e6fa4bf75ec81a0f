package spec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"gopkg.in/yaml.v3"
)

// Write serializes the final document to path, as JSON when the extension is
// .json and YAML otherwise. Parent directories are created. Output is
// deterministic: both encoders emit map keys in sorted order, so unchanged
// input produces byte-identical files.
func Write(doc *openapi2.T, path string) error {
	data, err := Marshal(doc, strings.ToLower(filepath.Ext(path)) == ".json")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &GenError{Code: WriteError, Key: path,
				Message: fmt.Sprintf("write: create %s: %v", dir, err), Cause: err}
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &GenError{Code: WriteError, Key: path,
			Message: fmt.Sprintf("write: %s: %v", path, err), Cause: err}
	}
	return nil
}

// Marshal renders the document. The YAML path goes through the document's
// JSON marshaler first so extension fields are serialized the same way in
// both formats.
func Marshal(doc *openapi2.T, asJSON bool) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, &GenError{Code: WriteError,
			Message: fmt.Sprintf("write: marshal document: %v", err), Cause: err}
	}
	if asJSON {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return nil, &GenError{Code: WriteError,
				Message: fmt.Sprintf("write: indent JSON: %v", err), Cause: err}
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, &GenError{Code: WriteError,
			Message: fmt.Sprintf("write: reshape document: %v", err), Cause: err}
	}
	return yaml.Marshal(tree)
}
