package analyzer

import (
	"fmt"
	"go/ast"
	"reflect"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/floxcristian/nx-starter/internal/spec"
)

const schemaRefPrefix = "#/components/schemas/"

// typeDecl is one collected struct declaration.
type typeDecl struct {
	name string
	st   *ast.StructType
	doc  string
}

// Builder derives structural schemas for payload types. It owns one
// service-scoped SchemaDictionary: named definitions are inserted as empty
// placeholders before their members are expanded, which is what breaks
// self-referential and mutually-referential type cycles.
type Builder struct {
	types map[string]*typeDecl
	dict  spec.SchemaDictionary
}

func NewBuilder(types map[string]*typeDecl, dict spec.SchemaDictionary) *Builder {
	return &Builder{types: types, dict: dict}
}

// Resolve returns an inline primitive schema or a reference to a named entry
// in the dictionary, expanding the named type's members on first sight.
func (b *Builder) Resolve(typeName string) (*openapi3.SchemaRef, error) {
	if prim := primitiveSchema(typeName); prim != nil {
		return openapi3.NewSchemaRef("", prim), nil
	}
	if _, ok := b.dict[typeName]; ok {
		return refTo(typeName), nil
	}
	decl, ok := b.types[typeName]
	if !ok {
		return nil, fmt.Errorf("schema: cannot resolve referenced type %q", typeName)
	}

	sch := &openapi3.Schema{
		Type:       "object",
		Properties: openapi3.Schemas{},
	}
	if decl.doc != "" {
		sch.Description = decl.doc
	}
	// Placeholder first: members referring back to typeName (directly or via
	// another type) hit the dictionary entry and produce a reference.
	b.dict[typeName] = openapi3.NewSchemaRef("", sch)

	for _, field := range decl.st.Fields.List {
		if _, isFunc := field.Type.(*ast.FuncType); isFunc {
			continue
		}
		for _, ident := range field.Names {
			if !ident.IsExported() {
				continue
			}
			ref, optional, err := b.resolveExpr(field.Type)
			if err != nil {
				// Roll the placeholder back so a later lookup does not hand
				// out a reference to a half-built schema.
				delete(b.dict, typeName)
				return nil, err
			}
			name, tagged := jsonName(field)
			if name == "-" {
				continue
			}
			if name == "" {
				name = ident.Name
			}
			sch.Properties[name] = ref
			if !optional && !(tagged && hasOmitempty(field)) {
				sch.Required = append(sch.Required, name)
			}
		}
	}
	return refTo(typeName), nil
}

// resolveExpr maps an AST type expression to a schema or reference. The
// optional result is true for pointer types.
func (b *Builder) resolveExpr(expr ast.Expr) (ref *openapi3.SchemaRef, optional bool, err error) {
	switch t := expr.(type) {
	case *ast.Ident:
		ref, err = b.Resolve(t.Name)
		return ref, false, err
	case *ast.StarExpr:
		ref, _, err = b.resolveExpr(t.X)
		return ref, true, err
	case *ast.ArrayType:
		// []byte is a base64 string, not an array.
		if ident, ok := t.Elt.(*ast.Ident); ok && ident.Name == "byte" {
			return openapi3.NewSchemaRef("", &openapi3.Schema{Type: "string", Format: "byte"}), false, nil
		}
		items, _, err := b.resolveExpr(t.Elt)
		if err != nil {
			return nil, false, err
		}
		return openapi3.NewSchemaRef("", &openapi3.Schema{Type: "array", Items: items}), false, nil
	case *ast.SelectorExpr:
		if pkg, ok := t.X.(*ast.Ident); ok && pkg.Name == "time" && t.Sel.Name == "Time" {
			return openapi3.NewSchemaRef("", &openapi3.Schema{Type: "string", Format: "date-time"}), false, nil
		}
		// Foreign package type: structure is opaque to the analyzer.
		return openapi3.NewSchemaRef("", &openapi3.Schema{Type: "object"}), false, nil
	case *ast.MapType:
		value, _, err := b.resolveExpr(t.Value)
		if err != nil {
			return nil, false, err
		}
		return openapi3.NewSchemaRef("", &openapi3.Schema{
			Type:                 "object",
			AdditionalProperties: openapi3.AdditionalProperties{Schema: value},
		}), false, nil
	case *ast.InterfaceType:
		return openapi3.NewSchemaRef("", &openapi3.Schema{}), false, nil
	default:
		return nil, false, fmt.Errorf("schema: unsupported member type %T", expr)
	}
}

// known reports whether Resolve can produce a schema for name.
func (b *Builder) known(name string) bool {
	if primitiveSchema(name) != nil {
		return true
	}
	if _, ok := b.dict[name]; ok {
		return true
	}
	_, ok := b.types[name]
	return ok
}

func refTo(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef(schemaRefPrefix+name, nil)
}

// primitiveSchema returns the inline schema for a Go builtin, or nil for a
// named (non-primitive) type.
func primitiveSchema(typeName string) *openapi3.Schema {
	switch typeName {
	case "string":
		return &openapi3.Schema{Type: "string"}
	case "bool":
		return &openapi3.Schema{Type: "boolean"}
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64", "byte", "rune":
		return &openapi3.Schema{Type: "integer"}
	case "float32", "float64":
		return &openapi3.Schema{Type: "number"}
	default:
		return nil
	}
}

// jsonName extracts the field name from a json struct tag. The second result
// reports whether a json tag was present at all.
func jsonName(field *ast.Field) (string, bool) {
	if field.Tag == nil {
		return "", false
	}
	tag := reflect.StructTag(strings.Trim(field.Tag.Value, "`"))
	value, ok := tag.Lookup("json")
	if !ok {
		return "", false
	}
	name := strings.Split(value, ",")[0]
	return name, true
}

func hasOmitempty(field *ast.Field) bool {
	if field.Tag == nil {
		return false
	}
	tag := reflect.StructTag(strings.Trim(field.Tag.Value, "`"))
	value, _ := tag.Lookup("json")
	for _, part := range strings.Split(value, ",")[1:] {
		if part == "omitempty" {
			return true
		}
	}
	return false
}
