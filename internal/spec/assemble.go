package spec

import (
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/floxcristian/nx-starter/internal/logging"
)

// Assemble merges every service's specification into one combined OpenAPI v3
// document. Schema name collisions across services are first-writer-wins and
// logged. A synthetic GET <prefix>/health route is injected for each service
// that does not declare one itself.
func Assemble(services []*ServiceSpec, info Info) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       info.Title,
			Description: info.Description,
			Version:     info.Version,
		},
		Paths:      openapi3.Paths{},
		Components: &openapi3.Components{Schemas: openapi3.Schemas{}},
	}

	seenTags := make(map[string]bool)
	for _, svc := range services {
		paths := make([]string, 0, len(svc.Routes))
		for p := range svc.Routes {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			methods := make([]string, 0, len(svc.Routes[p]))
			for m := range svc.Routes[p] {
				methods = append(methods, string(m))
			}
			sort.Strings(methods)
			for _, m := range methods {
				setOperation(doc, p, m, operationFor(svc.Routes[p][HttpMethod(m)]))
			}
		}

		injectHealthRoute(doc, svc)

		names := make([]string, 0, len(svc.Schemas))
		for name := range svc.Schemas {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, exists := doc.Components.Schemas[name]; exists {
				logging.Warn("spec: definition %q from service %q collides with an earlier service, keeping the first definition", name, svc.Name)
				continue
			}
			doc.Components.Schemas[name] = svc.Schemas[name]
		}

		for _, tag := range svc.Tags {
			if !seenTags[tag] {
				seenTags[tag] = true
				doc.Tags = append(doc.Tags, &openapi3.Tag{Name: tag})
			}
		}
	}
	return doc
}

func setOperation(doc *openapi3.T, path, method string, op *openapi3.Operation) {
	item := doc.Paths[path]
	if item == nil {
		item = &openapi3.PathItem{}
		doc.Paths[path] = item
	}
	item.SetOperation(strings.ToUpper(method), op)
}

func injectHealthRoute(doc *openapi3.T, svc *ServiceSpec) {
	path := svc.Prefix + "/health"
	if item := doc.Paths[path]; item != nil && item.Get != nil {
		return
	}
	tag := svc.Name
	if len(svc.Tags) > 0 {
		tag = svc.Tags[0]
	}
	setOperation(doc, path, "get", operationFor(&RouteDefinition{
		Method:      GET,
		Path:        path,
		Summary:     "Service health probe",
		OperationID: svc.Name + "_Health",
		Tags:        []string{tag},
		Responses:   []ResponseDescriptor{{Status: "200", Description: "Service is healthy"}},
	}))
}

func operationFor(rd *RouteDefinition) *openapi3.Operation {
	op := &openapi3.Operation{
		Summary:     rd.Summary,
		OperationID: rd.OperationID,
		Tags:        rd.Tags,
		Responses:   openapi3.Responses{},
	}
	for _, p := range rd.Parameters {
		if p.In == InBody {
			op.RequestBody = &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{
				Required: p.Required,
				Content:  openapi3.NewContentWithJSONSchemaRef(p.Schema),
			}}
			continue
		}
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: &openapi3.Parameter{
			Name:     p.Name,
			In:       p.In,
			Required: p.Required,
			Schema:   openapi3.NewSchemaRef("", &openapi3.Schema{Type: p.Type}),
		}})
	}
	for _, r := range rd.Responses {
		desc := r.Description
		resp := &openapi3.Response{Description: &desc}
		if r.Schema != nil {
			resp.Content = openapi3.NewContentWithJSONSchemaRef(r.Schema)
		}
		op.Responses[r.Status] = &openapi3.ResponseRef{Value: resp}
	}
	return op
}
