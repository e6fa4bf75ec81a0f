package spec

import (
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"

	"github.com/floxcristian/nx-starter/internal/logging"
)

// Platform configures the gateway-specific enhancement pass.
type Platform struct {
	Title     string
	Version   string
	Protocol  string // http|https, selects the backend protocol token
	RateLimit int    // requests per minute for the single quota limit
}

// APIKeyScheme is the canonical security definition every enhanced document
// carries: an API key sent in the x-api-key request header.
const APIKeyScheme = "api_key"

type backendTarget struct {
	Address         string `json:"address"`
	Protocol        string `json:"protocol"`
	PathTranslation string `json:"path_translation"`
}

type metricDescriptor struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	ValueType   string `json:"valueType"`
	MetricKind  string `json:"metricKind"`
}

type quotaLimit struct {
	Name   string         `json:"name"`
	Metric string         `json:"metric"`
	Unit   string         `json:"unit"`
	Values map[string]int `json:"values"`
}

type management struct {
	Metrics []metricDescriptor `json:"metrics"`
	Quota   struct {
		Limits []quotaLimit `json:"limits"`
	} `json:"quota"`
}

// Enhance layers gateway platform metadata onto a converted document:
// management metrics and quota, the canonical API key security definition
// (pruning scheme shapes the platform cannot express), and one backend
// target per operation resolved by longest prefix match against the known
// service prefixes. A route matching no prefix keeps its operation but gets
// no backend target.
func Enhance(doc *openapi2.T, backends []BackendRoute, p Platform) *openapi2.T {
	doc.Info.Title = p.Title
	doc.Info.Version = p.Version

	if doc.Extensions == nil {
		doc.Extensions = make(map[string]interface{})
	}
	doc.Extensions["x-google-management"] = managementBlock(p.RateLimit)

	pruneSecurityDefinitions(doc)
	if doc.SecurityDefinitions == nil {
		doc.SecurityDefinitions = make(map[string]*openapi2.SecurityScheme)
	}
	doc.SecurityDefinitions[APIKeyScheme] = &openapi2.SecurityScheme{
		Type:        "apiKey",
		Name:        "x-api-key",
		In:          "header",
		Description: "Gateway API key",
	}

	protocol := "h2"
	if p.Protocol == "http" {
		protocol = "http/1.1"
	}

	// Longest prefix first so /users-admin wins over /users.
	ordered := append([]BackendRoute(nil), backends...)
	sort.Slice(ordered, func(i, j int) bool { return len(ordered[i].Prefix) > len(ordered[j].Prefix) })

	for path, item := range doc.Paths {
		if item == nil {
			continue
		}
		backend, found := matchPrefix(path, ordered)
		for _, op := range item.Operations() {
			if op == nil {
				continue
			}
			if found {
				if op.Extensions == nil {
					op.Extensions = make(map[string]interface{})
				}
				op.Extensions["x-google-backend"] = backendTarget{
					Address:         backend.URL,
					Protocol:        protocol,
					PathTranslation: "APPEND_PATH_TO_ADDRESS",
				}
			}
			if op.Security == nil {
				op.Security = &openapi2.SecurityRequirements{{APIKeyScheme: {}}}
			}
		}
		if !found {
			logging.Debug("spec: path %s matches no service prefix, left without a backend target", path)
		}
	}
	return doc
}

func managementBlock(rateLimit int) management {
	var m management
	m.Metrics = []metricDescriptor{
		{Name: "request-count", DisplayName: "Request count", ValueType: "INT64", MetricKind: "DELTA"},
		{Name: "request-latencies", DisplayName: "Request latencies", ValueType: "DISTRIBUTION", MetricKind: "DELTA"},
	}
	m.Quota.Limits = []quotaLimit{{
		Name:   "rate-limit",
		Metric: "request-count",
		Unit:   "1/min/{project}",
		Values: map[string]int{"STANDARD": rateLimit},
	}}
	return m
}

func matchPrefix(path string, ordered []BackendRoute) (BackendRoute, bool) {
	for _, b := range ordered {
		if path == b.Prefix || strings.HasPrefix(path, b.Prefix+"/") {
			return b, true
		}
	}
	return BackendRoute{}, false
}

// pruneSecurityDefinitions removes inherited security scheme shapes the
// platform cannot express. Supported: API keys in header or query, and
// implicit-flow OAuth2. Pruned entries are logged by name, and any security
// requirement referring to them is dropped.
func pruneSecurityDefinitions(doc *openapi2.T) {
	removed := make(map[string]bool)
	for name, scheme := range doc.SecurityDefinitions {
		if scheme == nil || !platformSupportedScheme(scheme) {
			logging.Warn("spec: security definition %q is not supported by the gateway platform, pruned", name)
			removed[name] = true
			delete(doc.SecurityDefinitions, name)
		}
	}
	if len(removed) == 0 {
		return
	}
	doc.Security = filterRequirements(doc.Security, removed)
	for _, item := range doc.Paths {
		if item == nil {
			continue
		}
		for _, op := range item.Operations() {
			if op == nil || op.Security == nil {
				continue
			}
			filtered := filterRequirements(*op.Security, removed)
			op.Security = &filtered
		}
	}
}

func platformSupportedScheme(s *openapi2.SecurityScheme) bool {
	switch s.Type {
	case "apiKey":
		return s.In == "header" || s.In == "query"
	case "oauth2":
		return s.Flow == "implicit"
	default:
		return false
	}
}

func filterRequirements(reqs openapi2.SecurityRequirements, removed map[string]bool) openapi2.SecurityRequirements {
	var out openapi2.SecurityRequirements
	for _, req := range reqs {
		keep := make(map[string][]string)
		for name, scopes := range req {
			if !removed[name] {
				keep[name] = scopes
			}
		}
		if len(keep) > 0 {
			out = append(out, keep)
		}
	}
	return out
}
