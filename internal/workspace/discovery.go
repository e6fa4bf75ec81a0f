package workspace

import (
	"sort"
	"strings"

	"github.com/floxcristian/nx-starter/internal/config"
	"github.com/floxcristian/nx-starter/internal/logging"
	"github.com/floxcristian/nx-starter/internal/spec"
)

// Service is an exposable application project with its resolved backend
// address, route path prefix, and transitive in-workspace library closure.
type Service struct {
	Project   *Project
	Backend   string
	Prefix    string
	Libraries []*Project
}

// Discover filters the graph to exposable application projects and resolves
// each against the supplied backend addresses. A tagged project with no
// matching backend is excluded with a warning; zero resolved services is a
// fatal configuration error. The returned slice is ordered by project name.
func Discover(g *Graph, backends []config.Backend) ([]*Service, error) {
	var tagged []*Project
	for _, p := range g.Projects {
		if p.Kind == KindApplication && p.HasTag(ExposeTag) {
			tagged = append(tagged, p)
		}
	}
	sort.Slice(tagged, func(i, j int) bool { return tagged[i].Name < tagged[j].Name })

	var services []*Service
	for _, p := range tagged {
		backend, ok := matchBackend(p.Name, backends)
		if !ok {
			logging.Warn("workspace: service %q has no matching *_BACKEND_URL entry, excluded from the specification", p.Name)
			continue
		}
		services = append(services, &Service{
			Project:   p,
			Backend:   backend,
			Prefix:    "/" + p.Name,
			Libraries: libraryClosure(g, p),
		})
	}

	if len(services) == 0 {
		return nil, &spec.GenError{Code: spec.ConfigError,
			Message: "workspace: no exposable services resolved to a backend URL; " +
				`tag applications with "` + ExposeTag + `" and set e.g. USERS_BACKEND_URL=https://users.internal`}
	}
	return services, nil
}

// matchBackend finds the best backend entry for a project name: an exact
// normalized-name match wins, a substring match is the fallback.
func matchBackend(name string, backends []config.Backend) (string, bool) {
	normalized := config.CandidateName(name)
	for _, b := range backends {
		if b.Candidate == normalized {
			return b.URL, true
		}
	}
	for _, b := range backends {
		if b.Candidate == "" {
			continue
		}
		if strings.Contains(normalized, b.Candidate) || strings.Contains(b.Candidate, normalized) {
			return b.URL, true
		}
	}
	return "", false
}

// libraryClosure computes the transitive in-workspace library dependencies of
// a project, in deterministic name order.
func libraryClosure(g *Graph, p *Project) []*Project {
	seen := map[string]bool{p.Name: true}
	var libs []*Project
	queue := append([]string(nil), p.DependsOn...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true
		dep, ok := g.Projects[name]
		if !ok {
			continue
		}
		if dep.Kind == KindLibrary {
			libs = append(libs, dep)
		}
		queue = append(queue, dep.DependsOn...)
	}
	sort.Slice(libs, func(i, j int) bool { return libs[i].Name < libs[j].Name })
	return libs
}
