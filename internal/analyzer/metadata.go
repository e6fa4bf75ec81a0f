package analyzer

import (
	"go/ast"
	"strings"
)

// Annotations are doc-comment directives. A declaration carries a small,
// closed set of named metadata entries that the analyzer queries by kind:
//
//	//gateway:group /users users
//	//gateway:route POST /:id/activate
//	//gateway:query verbose
//	//gateway:body CreateUserRequest
//	//gateway:response 201 UserResponse Created user
const directivePrefix = "gateway:"

type directiveKind string

const (
	dirGroup    directiveKind = "group"
	dirRoute    directiveKind = "route"
	dirQuery    directiveKind = "query"
	dirBody     directiveKind = "body"
	dirResponse directiveKind = "response"
)

type directive struct {
	kind directiveKind
	args []string
}

// metadata is the declarative annotation table for one declaration, plus the
// free-text summary (first non-directive doc line).
type metadata struct {
	summary    string
	directives []directive
}

func parseMetadata(doc *ast.CommentGroup) metadata {
	var md metadata
	if doc == nil {
		return md
	}
	for _, comment := range doc.List {
		line := strings.TrimSpace(strings.TrimLeft(comment.Text, "/* \t"))
		if !strings.HasPrefix(line, directivePrefix) {
			if md.summary == "" && line != "" {
				md.summary = line
			}
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, directivePrefix))
		if len(fields) == 0 {
			continue
		}
		md.directives = append(md.directives, directive{
			kind: directiveKind(strings.ToLower(fields[0])),
			args: fields[1:],
		})
	}
	return md
}

func (m metadata) first(kind directiveKind) (directive, bool) {
	for _, d := range m.directives {
		if d.kind == kind {
			return d, true
		}
	}
	return directive{}, false
}

func (m metadata) all(kind directiveKind) []directive {
	var out []directive
	for _, d := range m.directives {
		if d.kind == kind {
			out = append(out, d)
		}
	}
	return out
}
