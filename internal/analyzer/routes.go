package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/floxcristian/nx-starter/internal/spec"
)

var (
	colonParamRe   = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)
	bracketParamRe = regexp.MustCompile(`\{([^{}/]+)\}`)
)

// normalizePath joins a group prefix and a route sub-path and rewrites every
// path placeholder to the canonical {name} bracket syntax, whichever syntax
// the source used.
func normalizePath(prefix, sub string) string {
	p := "/" + strings.Trim(prefix, "/")
	if s := strings.Trim(sub, "/"); s != "" {
		p += "/" + s
	}
	return colonParamRe.ReplaceAllString(p, "{$1}")
}

// pathParams returns placeholder names in declaration order.
func pathParams(path string) []string {
	matches := bracketParamRe.FindAllStringSubmatch(path, -1)
	var names []string
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

var httpMethods = map[string]spec.HttpMethod{
	"GET":     spec.GET,
	"POST":    spec.POST,
	"PUT":     spec.PUT,
	"DELETE":  spec.DELETE,
	"PATCH":   spec.PATCH,
	"HEAD":    spec.HEAD,
	"OPTIONS": spec.OPTIONS,
}

// buildRoute assembles one RouteDefinition from a group and an annotated
// method, resolving payload types through the schema builder.
func buildRoute(group *routeGroup, method *routeMethod, b *Builder) (*spec.RouteDefinition, error) {
	routeDir, ok := method.meta.first(dirRoute)
	if !ok || len(routeDir.args) == 0 {
		return nil, fmt.Errorf("route: %s.%s has a malformed gateway:route annotation (want METHOD [subpath])", group.typeName, method.name)
	}
	verb, ok := httpMethods[strings.ToUpper(routeDir.args[0])]
	if !ok {
		return nil, fmt.Errorf("route: %s.%s declares unknown HTTP method %q", group.typeName, method.name, routeDir.args[0])
	}
	sub := ""
	if len(routeDir.args) > 1 {
		sub = routeDir.args[1]
	}
	path := normalizePath(group.prefix, sub)

	rd := &spec.RouteDefinition{
		Method:      verb,
		Path:        path,
		Summary:     method.meta.summary,
		OperationID: group.tag + "_" + method.name,
		Tags:        []string{group.tag},
	}

	// One required primitive parameter per placeholder, in declaration order.
	for _, name := range pathParams(path) {
		rd.Parameters = append(rd.Parameters, spec.ParameterDescriptor{
			Name: name, In: spec.InPath, Required: true, Type: "string",
		})
	}

	for _, q := range method.meta.all(dirQuery) {
		if len(q.args) == 0 {
			return nil, fmt.Errorf("route: %s.%s has a gateway:query annotation without a name", group.typeName, method.name)
		}
		rd.Parameters = append(rd.Parameters, spec.ParameterDescriptor{
			Name: q.args[0], In: spec.InQuery, Required: false, Type: "string",
		})
	}

	if body, ok := method.meta.first(dirBody); ok {
		if len(body.args) == 0 {
			return nil, fmt.Errorf("route: %s.%s has a gateway:body annotation without a type", group.typeName, method.name)
		}
		schema, err := b.Resolve(body.args[0])
		if err != nil {
			return nil, err
		}
		rd.Parameters = append(rd.Parameters, spec.ParameterDescriptor{
			Name: "body", In: spec.InBody, Required: true, Schema: schema,
		})
	}

	for _, r := range method.meta.all(dirResponse) {
		resp, err := buildResponse(r.args, b)
		if err != nil {
			return nil, fmt.Errorf("route: %s.%s: %w", group.typeName, method.name, err)
		}
		rd.Responses = append(rd.Responses, resp)
	}
	if len(rd.Responses) == 0 {
		rd.Responses = []spec.ResponseDescriptor{{Status: "200", Description: "Success"}}
	}
	return rd, nil
}

// buildResponse parses `[status] [TypeName] [description...]` annotation
// arguments. Status defaults to 200 when the first token is not numeric.
func buildResponse(args []string, b *Builder) (spec.ResponseDescriptor, error) {
	resp := spec.ResponseDescriptor{Status: "200", Description: "Success"}
	rest := args
	if len(rest) > 0 {
		if code, err := strconv.Atoi(rest[0]); err == nil {
			if code < 100 || code > 599 {
				return resp, fmt.Errorf("response status %d out of range", code)
			}
			resp.Status = rest[0]
			rest = rest[1:]
		}
	}
	// A leading capitalized token is a payload type only when the builder
	// knows it; otherwise it is the start of the description.
	if len(rest) > 0 && isTypeName(rest[0]) && b.known(rest[0]) {
		schema, err := b.Resolve(rest[0])
		if err != nil {
			return resp, err
		}
		resp.Schema = schema
		rest = rest[1:]
	}
	if len(rest) > 0 {
		resp.Description = strings.Join(rest, " ")
	}
	return resp, nil
}

// isTypeName reports whether the token looks like an exported Go type name.
func isTypeName(tok string) bool {
	if tok == "" {
		return false
	}
	c := tok[0]
	return c >= 'A' && c <= 'Z'
}
