package codereview

import (
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"path"
	"sort"
	"strconv"
	"strings"
)

// snippetHeader is prepended to code that lacks a package clause.
const snippetHeader = "package snippet\n"

// source is a parsed submission. When the code is a bare snippet it is parsed
// under a synthetic package clause and lineOffset corrects reported lines.
type source struct {
	fset       *token.FileSet
	file       *ast.File
	lineOffset int
	err        error
}

func parseSource(code string) source {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "input.go", code, parser.ParseComments|parser.AllErrors)
	if err == nil || hasPackageClause(code) {
		return source{fset: fset, file: file, err: err}
	}

	snippetSet := token.NewFileSet()
	snippet, snippetErr := parser.ParseFile(snippetSet, "input.go", snippetHeader+code, parser.ParseComments|parser.AllErrors)
	return source{fset: snippetSet, file: snippet, lineOffset: 1, err: snippetErr}
}

func hasPackageClause(code string) bool {
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		return strings.HasPrefix(line, "package ")
	}
	return false
}

// valid reports whether the code parsed without errors.
func (s source) valid() bool {
	return s.err == nil && s.file != nil
}

func (s source) line(pos token.Pos) int {
	return s.fset.Position(pos).Line - s.lineOffset
}

// funcs returns the declared functions in source order.
func (s source) funcs() []*ast.FuncDecl {
	if s.file == nil {
		return nil
	}
	var out []*ast.FuncDecl
	for _, decl := range s.file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok {
			out = append(out, fn)
		}
	}
	return out
}

// funcName names methods as Receiver.Method.
func funcName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return fn.Name.Name
	}
	return receiverType(fn.Recv.List[0].Type) + "." + fn.Name.Name
}

func receiverType(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverType(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return receiverType(t.X)
	case *ast.IndexListExpr:
		return receiverType(t.X)
	}
	return "?"
}

// parseIssues converts parser errors into issues.
func (s source) parseIssues() []Issue {
	if s.err == nil {
		return nil
	}
	list, ok := s.err.(scanner.ErrorList)
	if !ok {
		return []Issue{{Message: "syntax error: " + s.err.Error()}}
	}
	out := make([]Issue, 0, len(list))
	for _, e := range list {
		out = append(out, Issue{
			Line:    e.Pos.Line - s.lineOffset,
			Message: "syntax error: " + e.Msg,
		})
	}
	return out
}

// lint runs the built-in heuristics over a file that parsed cleanly.
func (s source) lint() []Issue {
	var issues []Issue
	add := func(pos token.Pos, msg string) {
		issues = append(issues, Issue{Line: s.line(pos), Message: msg})
	}

	for _, name := range s.unusedImports() {
		add(name.pos, "imported and not used: "+strconv.Quote(name.path))
	}

	for _, fn := range s.funcs() {
		name := funcName(fn)
		if fn.Body != nil && len(fn.Body.List) == 0 {
			add(fn.Pos(), "function "+name+" has an empty body")
		}
		if n := fn.Type.Params.NumFields(); n > 5 {
			add(fn.Pos(), "function "+name+" takes "+strconv.Itoa(n)+" parameters; consider an options struct")
		}
	}

	ast.Inspect(s.file, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.AssignStmt:
			if len(node.Rhs) == 1 && isBlank(node.Lhs[len(node.Lhs)-1]) {
				if _, ok := node.Rhs[0].(*ast.CallExpr); ok && len(node.Lhs) > 1 {
					add(node.Pos(), "last result of call discarded with _; check the error")
				}
			}
		case *ast.IfStmt:
			if node.Body != nil && len(node.Body.List) == 0 {
				add(node.Pos(), "empty if block")
			}
		case *ast.CallExpr:
			if isBuiltinPrint(node) {
				add(node.Pos(), "builtin "+node.Fun.(*ast.Ident).Name+" writes to stderr; use a logger")
			}
		}
		return true
	})

	for _, group := range s.file.Comments {
		for _, c := range group.List {
			text := strings.TrimSpace(strings.TrimLeft(c.Text, "/*"))
			for _, tag := range []string{"TODO", "FIXME"} {
				if strings.HasPrefix(text, tag) {
					add(c.Pos(), "unresolved "+tag+" comment")
				}
			}
		}
	}

	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Line < issues[j].Line })
	return issues
}

func isBlank(expr ast.Expr) bool {
	id, ok := expr.(*ast.Ident)
	return ok && id.Name == "_"
}

func isBuiltinPrint(call *ast.CallExpr) bool {
	fn, ok := call.Fun.(*ast.Ident)
	return ok && (fn.Name == "println" || fn.Name == "print")
}

type importName struct {
	local string
	path  string
	pos   token.Pos
}

// unusedImports approximates the compiler's check: an import is used when
// some selector expression names it.
func (s source) unusedImports() []importName {
	var imports []importName
	for _, spec := range s.file.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		local := guessPackageName(p)
		if spec.Name != nil {
			local = spec.Name.Name
		}
		if local == "_" || local == "." {
			continue
		}
		imports = append(imports, importName{local: local, path: p, pos: spec.Pos()})
	}
	if len(imports) == 0 {
		return nil
	}

	used := map[string]bool{}
	ast.Inspect(s.file, func(n ast.Node) bool {
		if sel, ok := n.(*ast.SelectorExpr); ok {
			if id, ok := sel.X.(*ast.Ident); ok {
				used[id.Name] = true
			}
		}
		return true
	})

	var out []importName
	for _, imp := range imports {
		if !used[imp.local] {
			out = append(out, imp)
		}
	}
	return out
}

// guessPackageName derives the usual package name from an import path:
// "gopkg.in/yaml.v3" -> "yaml", "github.com/x/go-redis/v9" -> "redis".
func guessPackageName(importPath string) string {
	base := path.Base(importPath)
	if len(base) > 1 && base[0] == 'v' && isDigits(base[1:]) {
		base = path.Base(path.Dir(importPath))
	}
	if i := strings.Index(base, ".v"); i > 0 && isDigits(base[i+2:]) {
		base = base[:i]
	}
	base = strings.TrimPrefix(base, "go-")
	return strings.ReplaceAll(base, "-", "")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
