package analyzer

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/floxcristian/nx-starter/internal/logging"
	"github.com/floxcristian/nx-starter/internal/spec"
	"github.com/floxcristian/nx-starter/internal/workspace"
)

// routeGroup is a struct declaration annotated with gateway:group. It
// establishes the path prefix and tag for its methods' routes.
type routeGroup struct {
	typeName string
	prefix   string
	tag      string
	methods  []*routeMethod
}

type routeMethod struct {
	name string
	meta metadata
}

// Analyzer walks one service's source tree (plus its library dependencies)
// and produces that service's ServiceSpec. Each Analyzer owns its own
// FileSet, type table, and schema dictionary; instances are not shared.
type Analyzer struct {
	fset   *token.FileSet
	types  map[string]*typeDecl
	groups map[string]*routeGroup // keyed by declaring type name
	files  []*ast.File
}

func New() *Analyzer {
	return &Analyzer{
		fset:   token.NewFileSet(),
		types:  make(map[string]*typeDecl),
		groups: make(map[string]*routeGroup),
	}
}

// AnalyzeService parses every Go source file reachable from the service's
// root and its transitive library roots. File-level parse failures are
// logged and skipped; a service with no analyzable route groups yields an
// error so the caller can decide whether the run as a whole still succeeds.
func (a *Analyzer) AnalyzeService(workspaceRoot string, svc *workspace.Service, version string) (*spec.ServiceSpec, error) {
	roots := []string{filepath.Join(workspaceRoot, svc.Project.Root)}
	for _, lib := range svc.Libraries {
		roots = append(roots, filepath.Join(workspaceRoot, lib.Root))
	}
	for _, root := range roots {
		if err := a.parseTree(root); err != nil {
			return nil, err
		}
	}
	a.attachMethods()

	if len(a.groups) == 0 {
		return nil, &spec.GenError{Code: spec.AnalysisError, Key: svc.Project.Name,
			Message: fmt.Sprintf("analyzer: service %q declares no gateway:group", svc.Project.Name)}
	}

	out := spec.NewServiceSpec(svc.Project.Name, version, svc.Prefix, svc.Backend)
	builder := NewBuilder(a.types, out.Schemas)

	groups := make([]*routeGroup, 0, len(a.groups))
	for _, g := range a.groups {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].typeName < groups[j].typeName })

	for _, group := range groups {
		out.AddTag(group.tag)
		for _, method := range group.methods {
			rd, err := buildRoute(group, method, builder)
			if err != nil {
				logging.Error("analyzer: service %q: %v", svc.Project.Name, err)
				continue
			}
			out.AddRoute(rd)
		}
	}
	return out, nil
}

// parseTree collects declarations from every non-test Go file under root.
func (a *Analyzer) parseTree(root string) error {
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		a.parseFile(path)
		return nil
	})
	if err != nil {
		return &spec.GenError{Code: spec.AnalysisError, Key: root,
			Message: fmt.Sprintf("analyzer: walk %s: %v", root, err), Cause: err}
	}
	return nil
}

// parseFile analyzes one source module, registering struct declarations and
// route groups. Parse errors degrade to a logged skip so one malformed file
// does not block the service.
func (a *Analyzer) parseFile(path string) {
	file, err := parser.ParseFile(a.fset, path, nil, parser.ParseComments)
	if err != nil {
		logging.Error("analyzer: parse %s: %v", path, err)
		return
	}
	a.files = append(a.files, file)

	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, s := range gen.Specs {
			ts, ok := s.(*ast.TypeSpec)
			if !ok {
				continue
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok {
				continue
			}
			doc := ts.Doc
			if doc == nil {
				doc = gen.Doc
			}
			md := parseMetadata(doc)
			a.types[ts.Name.Name] = &typeDecl{name: ts.Name.Name, st: st, doc: md.summary}

			if g, ok := md.first(dirGroup); ok {
				if len(g.args) == 0 {
					logging.Error("analyzer: %s: gateway:group on %s needs a path prefix", path, ts.Name.Name)
					continue
				}
				group := &routeGroup{typeName: ts.Name.Name, prefix: g.args[0]}
				if len(g.args) > 1 {
					group.tag = g.args[1]
				} else {
					group.tag = strings.Trim(g.args[0], "/")
				}
				a.groups[ts.Name.Name] = group
			}
		}
	}
}

// attachMethods runs after all files are parsed so methods declared in a
// different file than their group struct still register.
func (a *Analyzer) attachMethods() {
	for _, file := range a.files {
		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv == nil || len(fn.Recv.List) == 0 {
				continue
			}
			md := parseMetadata(fn.Doc)
			if _, ok := md.first(dirRoute); !ok {
				continue
			}
			group, ok := a.groups[receiverTypeName(fn.Recv.List[0].Type)]
			if !ok {
				continue
			}
			group.methods = append(group.methods, &routeMethod{name: fn.Name.Name, meta: md})
		}
	}
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	default:
		return ""
	}
}

// AnalyzeAll runs per-service analysis concurrently. Each service's analyzer
// and schema dictionary stay private to its goroutine until the merge step.
// Failed services are logged and dropped; the result keeps workspace order.
func AnalyzeAll(workspaceRoot string, services []*workspace.Service, version string) []*spec.ServiceSpec {
	results := make([]*spec.ServiceSpec, len(services))
	var wg sync.WaitGroup
	for i, svc := range services {
		wg.Add(1)
		go func(i int, svc *workspace.Service) {
			defer wg.Done()
			ss, err := New().AnalyzeService(workspaceRoot, svc, version)
			if err != nil {
				logging.Error("analyzer: service %q failed: %v", svc.Project.Name, err)
				return
			}
			results[i] = ss
		}(i, svc)
	}
	wg.Wait()

	var ok []*spec.ServiceSpec
	for _, r := range results {
		if r != nil {
			ok = append(ok, r)
		}
	}
	return ok
}
