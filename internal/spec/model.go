package spec

// Internal model produced by the route analyzer and consumed by the
// assembler. One ServiceSpec is built per exposable service per run and is
// never mutated after its analysis pass completes.

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/floxcristian/nx-starter/internal/logging"
)

type HttpMethod string

const (
	GET     HttpMethod = "get"
	POST    HttpMethod = "post"
	PUT     HttpMethod = "put"
	DELETE  HttpMethod = "delete"
	PATCH   HttpMethod = "patch"
	HEAD    HttpMethod = "head"
	OPTIONS HttpMethod = "options"
)

// SchemaDictionary maps payload type names to their structural schemas.
// Entries are inserted as placeholders before recursive expansion so that
// self-referential types resolve to a reference instead of recursing.
// Every $ref emitted anywhere in a document must resolve to a key here.
type SchemaDictionary map[string]*openapi3.SchemaRef

// Parameter locations.
const (
	InPath  = "path"
	InQuery = "query"
	InBody  = "body"
)

type ParameterDescriptor struct {
	Name     string
	In       string // path|query|body
	Required bool
	Type     string              // primitive type for path/query parameters
	Schema   *openapi3.SchemaRef // resolved schema for body parameters
}

type ResponseDescriptor struct {
	Status      string // "200" when unspecified
	Description string
	Schema      *openapi3.SchemaRef
}

type RouteDefinition struct {
	Method      HttpMethod
	Path        string // normalized full path: prefix + sub-path, {param} placeholders
	Summary     string
	OperationID string
	Tags        []string
	Parameters  []ParameterDescriptor
	Responses   []ResponseDescriptor
}

// ServiceSpec is one service's contribution to the combined specification.
type ServiceSpec struct {
	Name    string
	Title   string
	Version string
	Prefix  string
	Backend string
	Tags    []string
	Routes  map[string]map[HttpMethod]*RouteDefinition
	Schemas SchemaDictionary
}

func NewServiceSpec(name, version, prefix, backend string) *ServiceSpec {
	return &ServiceSpec{
		Name:    name,
		Title:   name,
		Version: version,
		Prefix:  prefix,
		Backend: backend,
		Routes:  make(map[string]map[HttpMethod]*RouteDefinition),
		Schemas: make(SchemaDictionary),
	}
}

// AddRoute merges a route into the service's route map. Adding a new method
// under an existing path is additive; a duplicate path+method keeps the first
// definition and logs the conflict.
func (s *ServiceSpec) AddRoute(rd *RouteDefinition) {
	methods, ok := s.Routes[rd.Path]
	if !ok {
		methods = make(map[HttpMethod]*RouteDefinition)
		s.Routes[rd.Path] = methods
	}
	if _, exists := methods[rd.Method]; exists {
		logging.Warn("spec: duplicate route %s %s in service %q, keeping the first definition", rd.Method, rd.Path, s.Name)
		return
	}
	methods[rd.Method] = rd
}

// AddTag records a tag once, preserving first-seen order.
func (s *ServiceSpec) AddTag(tag string) {
	if tag == "" {
		return
	}
	for _, t := range s.Tags {
		if t == tag {
			return
		}
	}
	s.Tags = append(s.Tags, tag)
}

// BackendRoute links a service's route prefix to its resolved backend
// address; the enhancer matches operations against these by longest prefix.
type BackendRoute struct {
	Service string
	Prefix  string
	URL     string
}

// Info carries the combined document's identity.
type Info struct {
	Title       string
	Description string
	Version     string
}
