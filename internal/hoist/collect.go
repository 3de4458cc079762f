package hoist

import (
	"github.com/bundlejs/scopehoist/internal/ast"
	"github.com/bundlejs/scopehoist/internal/js_ast"
	"github.com/bundlejs/scopehoist/internal/logger"
)

// ImportRecord is one entry of Collect's imports table (spec.md §3):
// IdentId → (source, local, is_async, loc).
type ImportRecord struct {
	Source  string
	Local   string // "*" for the whole namespace
	IsAsync bool
	Loc     logger.Loc
	Kind    ast.ImportKind
}

// Collect is a read-only traversal implementing spec.md §4.1. It never
// mutates the AST it walks; Hoist reads its finished tables by reference
// once run returns (spec.md §2, "Collect runs to completion before Hoist
// reads anything").
type Collect struct {
	decls      map[js_ast.Ref]bool
	ignoreMark js_ast.ScopeCtxt

	Imports           map[js_ast.Ref]ImportRecord
	Exports           map[js_ast.Ref]string
	NonStaticAccess   map[js_ast.Ref]bool
	NonStaticRequires map[string]bool
	WrappedRequires   map[string]bool

	IsESM            bool
	StaticCJSExports bool
	HasCJSExports    bool
	ShouldWrap       bool

	inModuleThis bool
	inTopLevel   bool
	inExportDecl bool
	inFunction   bool
}

func newCollect(decls map[js_ast.Ref]bool, ignoreMark js_ast.ScopeCtxt) *Collect {
	return &Collect{
		decls:             decls,
		ignoreMark:        ignoreMark,
		Imports:           map[js_ast.Ref]ImportRecord{},
		Exports:           map[js_ast.Ref]string{},
		NonStaticAccess:   map[js_ast.Ref]bool{},
		NonStaticRequires: map[string]bool{},
		WrappedRequires:   map[string]bool{},
		StaticCJSExports:  true,
		inModuleThis:      true,
		inTopLevel:        true,
	}
}

func (c *Collect) run(m *js_ast.Module) {
	for _, s := range m.Body {
		c.walkStmt(s)
	}
}

func (c *Collect) addExport(ref js_ast.Ref, name string) {
	if _, ok := c.Exports[ref]; !ok {
		c.Exports[ref] = name
	}
}

func (c *Collect) addImport(ref js_ast.Ref, rec ImportRecord) {
	c.Imports[ref] = rec
}

// addPatImports implements spec.md §4.1's add_pat_imports pseudo-procedure.
func (c *Collect) addPatImports(pat js_ast.Binding, source string, isAsync bool, loc logger.Loc, kind ast.ImportKind) {
	if !c.inTopLevel {
		c.WrappedRequires[source] = true
		if !isAsync {
			c.NonStaticRequires[source] = true
		}
	}
	switch b := pat.Data.(type) {
	case *js_ast.BIdentifier:
		c.addImport(b.Ref, ImportRecord{Source: source, Local: "*", IsAsync: isAsync, Loc: loc, Kind: kind})
	case *js_ast.BObject:
		for _, p := range b.Properties {
			if p.IsRest || p.IsComputed {
				c.NonStaticRequires[source] = true
				continue
			}
			key, ok := staticKeyName(p.Key)
			if !ok {
				c.NonStaticRequires[source] = true
				continue
			}
			ident, ok := p.Value.Data.(*js_ast.BIdentifier)
			if !ok {
				c.NonStaticRequires[source] = true
				continue
			}
			c.addImport(ident.Ref, ImportRecord{Source: source, Local: key, IsAsync: isAsync, Loc: loc, Kind: kind})
		}
	default:
		c.NonStaticRequires[source] = true
	}
}

func syntheticKeyPattern(key string, value js_ast.Binding) js_ast.Binding {
	return js_ast.Binding{Data: &js_ast.BObject{Properties: []js_ast.PropertyBinding{
		{Key: js_ast.Expr{Data: &js_ast.EIdentifier{Ref: js_ast.Ref{Name: key}}}, Value: value},
	}}}
}

func (c *Collect) markNonStaticAccess(ref js_ast.Ref) {
	c.NonStaticAccess[ref] = true
}

// ---- statements ---------------------------------------------------------

func (c *Collect) walkStmt(s js_ast.Stmt) {
	switch d := s.Data.(type) {
	case *js_ast.SImport:
		for _, spec := range d.Specifiers {
			c.addImport(spec.Local, ImportRecord{Source: d.Source, Local: spec.Imported, Kind: ast.ImportStmt, Loc: s.Loc})
		}
		c.IsESM = true

	case *js_ast.SExportNamed:
		c.IsESM = true
		if d.Source == nil {
			for _, spec := range d.Specifiers {
				c.addExport(spec.Orig, spec.Exported)
			}
		}

	case *js_ast.SExportStar:
		c.IsESM = true

	case *js_ast.SExportDefaultExpr:
		c.IsESM = true
		c.walkExpr(d.Value)

	case *js_ast.SExportDefaultDecl:
		c.IsESM = true
		c.walkDeclWithExportName(d.Decl, "default")

	case *js_ast.SExportDecl:
		c.IsESM = true
		switch inner := d.Decl.(type) {
		case *js_ast.SLocal:
			c.inExportDecl = true
			for _, decl := range inner.Decls {
				c.walkBindingNames(decl.Binding, func(ref js_ast.Ref) {
					c.addExport(ref, ref.Name)
				})
			}
			c.inExportDecl = false
			for _, decl := range inner.Decls {
				c.walkDeclaratorInit(decl)
			}
		case *js_ast.SFunction:
			if inner.Fn.Name != nil {
				c.addExport(*inner.Fn.Name, inner.Fn.Name.Name)
			}
			c.walkFn(inner.Fn, false)
		case *js_ast.SClass:
			if inner.Class.Name != nil {
				c.addExport(*inner.Class.Name, inner.Class.Name.Name)
			}
			c.walkClass(inner.Class)
		}

	case *js_ast.SLocal:
		for _, decl := range d.Decls {
			c.walkDeclaratorInit(decl)
		}

	case *js_ast.SFunction:
		c.walkFn(d.Fn, false)

	case *js_ast.SClass:
		c.walkClass(d.Class)

	case *js_ast.SBlock:
		wasTop := c.inTopLevel
		c.inTopLevel = false
		for _, inner := range d.Stmts {
			c.walkStmt(inner)
		}
		c.inTopLevel = wasTop

	case *js_ast.SExpr:
		c.walkExpr(d.Value)

	case *js_ast.SReturn:
		if !c.inFunction {
			c.ShouldWrap = true
		}
		if !d.ValueOrNil.IsNil() {
			c.walkExpr(d.ValueOrNil)
		}
	}
}

func (c *Collect) walkDeclWithExportName(decl js_ast.S, exportedName string) {
	switch inner := decl.(type) {
	case *js_ast.SFunction:
		if inner.Fn.Name != nil {
			c.addExport(*inner.Fn.Name, exportedName)
		}
		c.walkFn(inner.Fn, false)
	case *js_ast.SClass:
		if inner.Class.Name != nil {
			c.addExport(*inner.Class.Name, exportedName)
		}
		c.walkClass(inner.Class)
	}
}

// walkBindingNames invokes fn for every identifier binding found anywhere
// under pat (used for "export var/let/const", spec.md §4.1).
func (c *Collect) walkBindingNames(pat js_ast.Binding, fn func(js_ast.Ref)) {
	switch b := pat.Data.(type) {
	case *js_ast.BIdentifier:
		fn(b.Ref)
	case *js_ast.BObject:
		for _, p := range b.Properties {
			c.walkBindingNames(p.Value, fn)
		}
	case *js_ast.BArray:
		for _, item := range b.Items {
			if !item.Binding.IsNil() {
				c.walkBindingNames(item.Binding, fn)
			}
		}
	}
}

// walkDeclaratorInit implements "Require in variable declarators" (spec.md
// §4.1): a declarator's initializer is checked against require(s),
// require(s).K and await import(s) before falling back to a normal walk.
func (c *Collect) walkDeclaratorInit(decl js_ast.Decl) {
	init := decl.ValueOrNil
	if init.IsNil() {
		return
	}
	if s, ok := matchRequire(c.decls, init); ok {
		c.addPatImports(decl.Binding, s, false, init.Loc, ast.ImportRequire)
		return
	}
	if s, key, ok := matchRequireMember(c.decls, init); ok {
		pat := syntheticKeyPattern(key, decl.Binding)
		c.addPatImports(pat, s, false, init.Loc, ast.ImportRequire)
		return
	}
	if s, ok := matchAwaitImport(c.ignoreMark, init); ok {
		c.addPatImports(decl.Binding, s, true, init.Loc, ast.ImportDynamic)
		return
	}
	c.walkExpr(init)
}

// ---- expressions ----------------------------------------------------------

func (c *Collect) walkExpr(e js_ast.Expr) {
	switch d := e.Data.(type) {
	case *js_ast.EIdentifier:
		c.walkIdentRef(d.Ref)

	case *js_ast.EThis:
		if c.inModuleThis {
			c.HasCJSExports = true
		}

	case *js_ast.EDot:
		c.walkMember(d.Target, d.Name, true)

	case *js_ast.EIndex:
		if target, key, _, ok := matchMemberExpr(e); ok {
			c.walkMember(target, key, true)
			return
		}
		c.walkMember(d.Target, "", false)
		c.walkExpr(d.Index)

	case *js_ast.ECall:
		c.walkCall(e, d)

	case *js_ast.EAwait:
		c.walkExpr(d.Value)

	case *js_ast.EUnary:
		c.walkExpr(d.Value)

	case *js_ast.ESeq:
		for _, sub := range d.Exprs {
			c.walkExpr(sub)
		}

	case *js_ast.EObject:
		for _, p := range d.Properties {
			if _, isIdentKey := p.Key.Data.(*js_ast.EIdentifier); !isIdentKey {
				c.walkExpr(p.Key)
			}
			c.walkExpr(p.Value)
		}

	case *js_ast.EArray:
		for _, item := range d.Items {
			if !item.IsNil() {
				c.walkExpr(item)
			}
		}

	case *js_ast.EAssign:
		c.walkAssign(d)

	case *js_ast.EArrow:
		c.walkArrow(d)

	case *js_ast.EFunction:
		c.walkFn(d.Fn, false)

	case *js_ast.EClass:
		c.walkClass(d.Class)

	case *js_ast.ESpread:
		c.walkExpr(d.Value)

	case *js_ast.EString, *js_ast.ENumber:
		// literals: nothing to track
	}
}

// walkIdentRef handles a bare identifier reference reached outside of the
// static-object position of a member expression.
func (c *Collect) walkIdentRef(ref js_ast.Ref) {
	free := !c.decls[ref]
	if free && ref.Name != "import" {
		c.markNonStaticAccess(ref)
	}
	switch {
	case free && (ref.Name == "exports" || ref.Name == "module"):
		c.StaticCJSExports = false
		c.HasCJSExports = true
		if ref.Name == "module" {
			c.ShouldWrap = true
		}
	case free && ref.Name == "eval":
		c.ShouldWrap = true
	}
}

// walkMember implements the three CJS-classification bullets for
// "module.exports", "module.exports.K"/"exports.K"/"this.K", and leaves
// plain "ns.K" alone so Hoist can later decide whether ns is an inlinable
// import namespace. isStatic is false only for a genuinely computed
// (non-literal) index; matchMemberExpr already folds a string-literal
// EIndex into the static path before this is reached.
func (c *Collect) walkMember(target js_ast.Expr, key string, isStatic bool) {
	if name, free := freeIdentName(target, c.decls); free && name == "module" {
		if isStatic && key == "exports" {
			c.HasCJSExports = true
		}
		return
	}
	isExportsLike := false
	if name, free := freeIdentName(target, c.decls); free && name == "exports" {
		isExportsLike = true
	}
	if isModuleExportsExact(target, c.decls) {
		isExportsLike = true
	}
	if _, isThis := target.Data.(*js_ast.EThis); isThis && c.inModuleThis {
		isExportsLike = true
	}
	if isExportsLike {
		c.HasCJSExports = true
		if !isStatic {
			c.StaticCJSExports = false
		}
		return
	}
	// Generic "ns.K": visit target only if it isn't a bare identifier, so a
	// local bound to an import namespace is not marked non-static just
	// because it was used as the object of a member access. A computed,
	// non-literal key still escapes the value, so the identifier is marked.
	if ident, isIdent := target.Data.(*js_ast.EIdentifier); isIdent {
		if !isStatic {
			c.markNonStaticAccess(ident.Ref)
		}
		return
	}
	c.walkExpr(target)
}

func isModuleExportsExact(e js_ast.Expr, decls map[js_ast.Ref]bool) bool {
	target, key, _, ok := matchMemberExpr(e)
	if !ok || key != "exports" {
		return false
	}
	name, free := freeIdentName(target, decls)
	return free && name == "module"
}

func (c *Collect) walkCall(e js_ast.Expr, d *js_ast.ECall) {
	// import(s).then(cb)
	if dot, ok := d.Target.Data.(*js_ast.EDot); ok && dot.Name == "then" {
		if s, ok := matchImport(c.ignoreMark, dot.Target); ok {
			if len(d.Args) >= 1 {
				if params, body, isAsync, ok := asFunctionLike(d.Args[0]); ok && len(params) >= 1 {
					c.addPatImports(params[0], s, true, e.Loc, ast.ImportDynamic)
					wasFn := c.inFunction
					wasThis := c.inModuleThis
					c.inFunction = true
					if !isAsync {
						c.inModuleThis = false
					}
					for _, st := range body {
						c.walkStmt(st)
					}
					c.inFunction = wasFn
					c.inModuleThis = wasThis
					for _, extra := range d.Args[1:] {
						c.walkExpr(extra)
					}
					return
				}
			}
			c.NonStaticRequires[s] = true
			c.WrappedRequires[s] = true
			for _, a := range d.Args {
				c.walkExpr(a)
			}
			return
		}
	}

	if s, ok := matchRequire(c.decls, e); ok {
		c.WrappedRequires[s] = true
		return
	}
	if s, ok := matchImport(c.ignoreMark, e); ok {
		c.NonStaticRequires[s] = true
		c.WrappedRequires[s] = true
		return
	}

	c.walkExpr(d.Target)
	for _, a := range d.Args {
		c.walkExpr(a)
	}
}

// asFunctionLike extracts params/body/isAsync from an arrow or function
// expression, for the import(s).then(cb) callback-pattern rule.
func asFunctionLike(e js_ast.Expr) (params []js_ast.Binding, body []js_ast.Stmt, isAsync bool, ok bool) {
	switch d := e.Data.(type) {
	case *js_ast.EArrow:
		return d.Params, d.Body, d.IsAsync, true
	case *js_ast.EFunction:
		return d.Fn.Params, d.Fn.Body, d.Fn.IsAsync, true
	}
	return nil, nil, false, false
}

func (c *Collect) walkAssign(d *js_ast.EAssign) {
	if d.TargetExpr != nil {
		target := *d.TargetExpr
		if name, free := freeIdentName(target, c.decls); free && name == "exports" {
			c.ShouldWrap = true
		}
		c.walkExpr(target)
	} else if d.TargetPattern != nil {
		if bindingHasFreeExportsIdentifier(*d.TargetPattern, c.decls) {
			c.ShouldWrap = true
			c.StaticCJSExports = false
			c.HasCJSExports = true
		}
		if s, ok := matchRequire(c.decls, d.Value); ok {
			c.NonStaticRequires[s] = true
		}
		c.walkBindingDefaults(*d.TargetPattern)
	}
	c.walkExpr(d.Value)
}

func bindingHasFreeExportsIdentifier(b js_ast.Binding, decls map[js_ast.Ref]bool) bool {
	switch d := b.Data.(type) {
	case *js_ast.BIdentifier:
		return d.Ref.Name == "exports" && !decls[d.Ref]
	case *js_ast.BObject:
		for _, p := range d.Properties {
			if bindingHasFreeExportsIdentifier(p.Value, decls) {
				return true
			}
		}
	case *js_ast.BArray:
		for _, item := range d.Items {
			if !item.Binding.IsNil() && bindingHasFreeExportsIdentifier(item.Binding, decls) {
				return true
			}
		}
	}
	return false
}

func (c *Collect) walkBindingDefaults(b js_ast.Binding) {
	switch d := b.Data.(type) {
	case *js_ast.BObject:
		for _, p := range d.Properties {
			if !p.DefaultValueOrNil.IsNil() {
				c.walkExpr(p.DefaultValueOrNil)
			}
			c.walkBindingDefaults(p.Value)
		}
	case *js_ast.BArray:
		for _, item := range d.Items {
			if !item.DefaultValueOrNil.IsNil() {
				c.walkExpr(item.DefaultValueOrNil)
			}
			if !item.Binding.IsNil() {
				c.walkBindingDefaults(item.Binding)
			}
		}
	}
}

func (c *Collect) walkArrow(d *js_ast.EArrow) {
	wasFn := c.inFunction
	c.inFunction = true
	for _, p := range d.Params {
		c.walkBindingDefaults(p)
	}
	for _, s := range d.Body {
		c.walkStmt(s)
	}
	c.inFunction = wasFn
}

func (c *Collect) walkFn(fn *js_ast.Fn, _ bool) {
	wasFn, wasThis := c.inFunction, c.inModuleThis
	c.inFunction = true
	c.inModuleThis = false
	for _, p := range fn.Params {
		c.walkBindingDefaults(p)
	}
	for _, s := range fn.Body {
		c.walkStmt(s)
	}
	c.inFunction = wasFn
	c.inModuleThis = wasThis
}

func (c *Collect) walkClass(cls *js_ast.Class) {
	wasFn, wasThis := c.inFunction, c.inModuleThis
	c.inFunction = true
	c.inModuleThis = false
	if !cls.ExtendsNil.IsNil() {
		c.walkExpr(cls.ExtendsNil)
	}
	for _, m := range cls.Members {
		if m.Fn != nil {
			c.walkFn(m.Fn, false)
		}
	}
	c.inFunction = wasFn
	c.inModuleThis = wasThis
}
