package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/floxcristian/nx-starter/internal/spec"
)

// Project kinds as reported by the workspace graph.
const (
	KindApplication = "application"
	KindLibrary     = "library"
)

// ExposeTag marks an application project as an exposable gateway service.
const ExposeTag = "gateway:expose"

// Project is one node of the workspace graph. Immutable after loading.
type Project struct {
	Name      string
	Root      string
	Kind      string
	Tags      []string
	DependsOn []string // direct in-workspace dependency names
}

// HasTag reports whether the project declares the given tag.
func (p *Project) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Graph is the full workspace project graph, loaded once per run.
type Graph struct {
	Projects map[string]*Project
}

// graphFile mirrors the JSON emitted by `nx graph --file=...`.
type graphFile struct {
	Graph struct {
		Nodes map[string]struct {
			Name string `json:"name"`
			Type string `json:"type"`
			Data struct {
				Root string   `json:"root"`
				Tags []string `json:"tags"`
			} `json:"data"`
		} `json:"nodes"`
		Dependencies map[string][]struct {
			Target string `json:"target"`
		} `json:"dependencies"`
	} `json:"graph"`
}

// LoadGraph obtains the workspace project graph by invoking the workspace
// tool as a synchronous external process. The command runs with root as its
// working directory and must write the graph JSON to the file passed via a
// --file flag. command may be empty, in which case `npx nx graph` is used;
// a custom command may carry a "{file}" token that is substituted with the
// output path. Exceeding timeout is a fatal discovery error.
func LoadGraph(ctx context.Context, root, command string, timeout time.Duration) (*Graph, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outPath := filepath.Join(os.TempDir(), fmt.Sprintf("project-graph-%d.json", os.Getpid()))
	defer os.Remove(outPath)

	argv := graphArgv(command, outPath)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = root
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &spec.GenError{Code: spec.DiscoveryError, Key: root,
				Message: fmt.Sprintf("workspace: graph command timed out after %s", timeout), Cause: ctx.Err()}
		}
		return nil, &spec.GenError{Code: spec.DiscoveryError, Key: root,
			Message: fmt.Sprintf("workspace: graph command failed: %v: %s", err, strings.TrimSpace(string(out))), Cause: err}
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, &spec.GenError{Code: spec.DiscoveryError, Key: outPath,
			Message: fmt.Sprintf("workspace: read graph output: %v", err), Cause: err}
	}
	return ParseGraph(data)
}

func graphArgv(command, outPath string) []string {
	if strings.TrimSpace(command) == "" {
		return []string{"npx", "nx", "graph", "--file=" + outPath}
	}
	argv := strings.Fields(command)
	replaced := false
	for i, a := range argv {
		if strings.Contains(a, "{file}") {
			argv[i] = strings.ReplaceAll(a, "{file}", outPath)
			replaced = true
		}
	}
	if !replaced {
		argv = append(argv, "--file="+outPath)
	}
	return argv
}

// ParseGraph decodes graph JSON into the immutable Graph model. External
// (non-workspace) dependency edges are dropped.
func ParseGraph(data []byte) (*Graph, error) {
	var gf graphFile
	if err := json.Unmarshal(data, &gf); err != nil {
		return nil, &spec.GenError{Code: spec.DiscoveryError,
			Message: fmt.Sprintf("workspace: parse graph JSON: %v", err), Cause: err}
	}
	if len(gf.Graph.Nodes) == 0 {
		return nil, &spec.GenError{Code: spec.DiscoveryError,
			Message: "workspace: graph contains no projects"}
	}

	g := &Graph{Projects: make(map[string]*Project, len(gf.Graph.Nodes))}
	for name, node := range gf.Graph.Nodes {
		kind := KindLibrary
		if node.Type == "app" || node.Type == KindApplication {
			kind = KindApplication
		}
		pname := node.Name
		if pname == "" {
			pname = name
		}
		g.Projects[pname] = &Project{
			Name: pname,
			Root: node.Data.Root,
			Kind: kind,
			Tags: node.Data.Tags,
		}
	}
	for source, edges := range gf.Graph.Dependencies {
		p, ok := g.Projects[source]
		if !ok {
			continue
		}
		for _, e := range edges {
			if strings.HasPrefix(e.Target, "npm:") {
				continue
			}
			if _, ok := g.Projects[e.Target]; !ok {
				continue
			}
			p.DependsOn = append(p.DependsOn, e.Target)
		}
	}
	return g, nil
}
