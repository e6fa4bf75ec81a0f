package spec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
)

// ConvertToV2 transforms the combined document into the Swagger 2.0 dialect
// the gateway platform requires. The transform is best-effort: constructs
// with no v2 equivalent are reported as warnings and the conversion
// continues. After conversion every schema reference uses the
// #/definitions/ syntax.
func ConvertToV2(doc *openapi3.T) (*openapi2.T, []Warning, error) {
	warnings := collectLossy(doc)
	v2doc, err := openapi2conv.FromV3(doc)
	if err != nil {
		return nil, warnings, &GenError{Code: ConversionError,
			Message: fmt.Sprintf("convert v3 to v2: %v", err), Cause: err}
	}
	rewriteRefs(v2doc)
	return v2doc, warnings, nil
}

// collectLossy inspects the v3 document for constructs Swagger 2.0 cannot
// express.
func collectLossy(doc *openapi3.T) []Warning {
	var warnings []Warning
	if len(doc.Servers) > 0 {
		warnings = append(warnings, Warning{
			Message: "server entries have no v2 equivalent and are replaced by gateway backend targets",
		})
	}
	paths := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		for method, op := range doc.Paths[p].Operations() {
			if op == nil {
				continue
			}
			for _, pref := range op.Parameters {
				if pref.Value != nil && pref.Value.In == "cookie" {
					warnings = append(warnings, Warning{
						Message: "cookie parameter dropped, no v2 equivalent",
						Subject: fmt.Sprintf("%s %s %s", method, p, pref.Value.Name),
					})
				}
			}
			if op.RequestBody != nil && op.RequestBody.Value != nil && len(op.RequestBody.Value.Content) > 1 {
				warnings = append(warnings, Warning{
					Message: "multiple request media types, only one is converted",
					Subject: fmt.Sprintf("%s %s", method, p),
				})
			}
		}
	}
	return warnings
}

// rewriteRefs normalizes every schema reference in the converted document to
// the #/definitions/ prefix, whatever reference syntax survived conversion.
func rewriteRefs(doc *openapi2.T) {
	seen := make(map[*openapi3.Schema]bool)
	var fix func(ref *openapi3.SchemaRef)
	fix = func(ref *openapi3.SchemaRef) {
		if ref == nil {
			return
		}
		if ref.Ref != "" {
			if i := strings.LastIndex(ref.Ref, "/"); i >= 0 {
				ref.Ref = "#/definitions/" + ref.Ref[i+1:]
			}
			return
		}
		s := ref.Value
		if s == nil || seen[s] {
			return
		}
		seen[s] = true
		for _, p := range s.Properties {
			fix(p)
		}
		fix(s.Items)
		fix(s.AdditionalProperties.Schema)
		fix(s.Not)
		for _, x := range s.AllOf {
			fix(x)
		}
		for _, x := range s.AnyOf {
			fix(x)
		}
		for _, x := range s.OneOf {
			fix(x)
		}
	}

	for _, ref := range doc.Definitions {
		fix(ref)
	}
	for _, item := range doc.Paths {
		if item == nil {
			continue
		}
		for _, param := range item.Parameters {
			fix(param.Schema)
		}
		for _, op := range item.Operations() {
			if op == nil {
				continue
			}
			for _, param := range op.Parameters {
				fix(param.Schema)
			}
			for _, resp := range op.Responses {
				if resp != nil {
					fix(resp.Schema)
				}
			}
		}
	}
}
