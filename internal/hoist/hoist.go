// Package hoist implements the scope-hoisting transform: Collect (a
// read-only analysis pass) followed by Hoist (a tree-rebuilding fold),
// grounded on Parcel's SWC-based hoist.rs (see DESIGN.md).
package hoist

import (
	"github.com/bundlejs/scopehoist/internal/ast"
	"github.com/bundlejs/scopehoist/internal/js_ast"
	"github.com/bundlejs/scopehoist/internal/logger"
)

// Options groups hoist's six positional parameters (spec.md §6) into one
// struct, the way internal/config.Options does for esbuild's parser.
type Options struct {
	ModuleID   string
	Decls      map[js_ast.Ref]bool
	IgnoreMark js_ast.ScopeCtxt
	GlobalMark js_ast.ScopeCtxt
	Log        logger.Log
	Source     *logger.Source
}

type ImportedSymbol struct {
	Source string
	Local  string
	Loc    logger.Loc
	Kind   ast.ImportKind
}

type ExportedSymbol struct {
	FreshName string
	Loc       logger.Loc
}

type ReExport struct {
	Exported string
	Source   string
	Local    string
	Loc      logger.Loc
}

// Result is HoistResult (spec.md §3/§6): every field is public and the
// record is meant to be serialized in full by a downstream linker.
type Result struct {
	ImportedSymbols map[string]ImportedSymbol
	ExportedSymbols map[string]ExportedSymbol
	ReExports       []ReExport
	SelfReferences  map[string]bool
	DynamicImports  map[string]string

	IsESM            bool
	StaticCJSExports bool
	HasCJSExports    bool
	ShouldWrap       bool
	WrappedRequires  map[string]bool
}

// Run is hoist()'s entry point (spec.md §6). ok is false only for the one
// classified, user-observable diagnostic this pass can emit (an
// unsupported export-default declaration kind, spec.md §9's Open
// Question); anything the pass treats as a programmer-error invariant
// violation panics instead (spec.md §7).
func Run(module *js_ast.Module, opts Options) (*js_ast.Module, Result, bool) {
	collect := newCollect(opts.Decls, opts.IgnoreMark)
	collect.run(module)

	h := &Hoist{
		opts:            opts,
		collect:         collect,
		seenImports:     map[string]bool{},
		ImportedSymbols: map[string]ImportedSymbol{},
		ExportedSymbols: map[string]ExportedSymbol{},
		SelfReferences:  map[string]bool{},
		DynamicImports:  map[string]string{},
		ExportDecls:     map[string]bool{},
	}

	newBody, ok := h.foldModule(module.Body)
	if !ok {
		return nil, Result{}, false
	}

	body := make([]js_ast.Stmt, 0, len(h.ExportDecls)+len(h.hoistedImports)+len(newBody))
	body = append(body, h.hoistedImports...)
	body = append(body, h.exportDeclStmts()...)
	body = append(body, newBody...)

	result := Result{
		ImportedSymbols:  h.ImportedSymbols,
		ExportedSymbols:  h.ExportedSymbols,
		ReExports:        h.ReExports,
		SelfReferences:   h.SelfReferences,
		DynamicImports:   h.DynamicImports,
		IsESM:            collect.IsESM,
		StaticCJSExports: collect.StaticCJSExports,
		HasCJSExports:    collect.HasCJSExports,
		ShouldWrap:       collect.ShouldWrap,
		WrappedRequires:  collect.WrappedRequires,
	}
	return &js_ast.Module{Body: body}, result, true
}

// Hoist is the fold over the AST described by spec.md §4.2.
type Hoist struct {
	opts    Options
	collect *Collect

	hoistedImports []js_ast.Stmt
	seenImports    map[string]bool // source -> a bare import for it was already emitted
	requiresInStmt []js_ast.Stmt   // deferred, flushed before the statement being folded

	inFunctionScope bool

	ImportedSymbols map[string]ImportedSymbol
	ExportedSymbols map[string]ExportedSymbol
	ReExports       []ReExport
	SelfReferences  map[string]bool
	DynamicImports  map[string]string
	ExportDecls     map[string]bool
}

func (h *Hoist) exportDeclStmts() []js_ast.Stmt {
	stmts := make([]js_ast.Stmt, 0, len(h.ExportDecls))
	for key := range h.ExportDecls {
		name := freshExportName(h.opts.ModuleID, key)
		stmts = append(stmts, js_ast.Stmt{Data: &js_ast.SLocal{
			Kind:  js_ast.LocalVar,
			Decls: []js_ast.Decl{{Binding: js_ast.Binding{Data: &js_ast.BIdentifier{Ref: js_ast.Ref{Name: name}}}}},
		}})
	}
	return stmts
}

// bareImportStmt builds `import "M:s"` (spec.md §6, "Synthetic import
// statement format"). The statement carries no ast.ImportKind.
func (h *Hoist) bareImportStmt(source string, loc logger.Loc) js_ast.Stmt {
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SImport{Source: h.opts.ModuleID + ":" + source}}
}

// addHoistedImport emits exactly one top-level bare import per source,
// unless the source is wrapped — one per occurrence then, in original
// order (spec.md §3's invariant on synthetic imports).
func (h *Hoist) addHoistedImport(source string, loc logger.Loc) {
	if h.collect.WrappedRequires[source] || !h.seenImports[source] {
		h.hoistedImports = append(h.hoistedImports, h.bareImportStmt(source, loc))
		h.seenImports[source] = true
	}
}

// deferRequire implements requires_in_stmt (spec.md §4.2, "Deferred
// require flushing" and SPEC_FULL.md §4 item 3): a nested require()
// discovered while folding a non-declarator statement must be flushed
// before that statement, not after.
func (h *Hoist) deferRequire(source string, loc logger.Loc) {
	if h.collect.WrappedRequires[source] || !h.seenImports[source] {
		h.requiresInStmt = append(h.requiresInStmt, h.bareImportStmt(source, loc))
		h.seenImports[source] = true
	}
}

func (h *Hoist) drainRequiresInStmt() []js_ast.Stmt {
	out := h.requiresInStmt
	h.requiresInStmt = nil
	return out
}

func (h *Hoist) recordImportedSymbol(name, source, local string, loc logger.Loc, kind ast.ImportKind) {
	if _, ok := h.ImportedSymbols[name]; !ok {
		h.ImportedSymbols[name] = ImportedSymbol{Source: source, Local: local, Loc: loc, Kind: kind}
	}
}

// setExportedSymbol implements entry-or-insert, first-writer-wins (spec.md
// §3). Under wrapping, the table records the *original* name rather than
// the generated schema name — the linker will find the binding unrenamed
// inside the wrapper function the caller installs (spec.md §4.2,
// "Wrapping mode").
func (h *Hoist) setExportedSymbol(exportedName string, originalName string, loc logger.Loc) string {
	if existing, ok := h.ExportedSymbols[exportedName]; ok {
		return existing.FreshName
	}
	var freshName string
	switch {
	case h.collect.ShouldWrap:
		freshName = originalName
	case exportedName == "*":
		freshName = wholeModuleExportName(h.opts.ModuleID)
	default:
		freshName = freshExportName(h.opts.ModuleID, exportedName)
	}
	h.ExportedSymbols[exportedName] = ExportedSymbol{FreshName: freshName, Loc: loc}
	return freshName
}

// ---- module-item level ----------------------------------------------------

func (h *Hoist) foldModule(items []js_ast.Stmt) ([]js_ast.Stmt, bool) {
	var out []js_ast.Stmt
	for _, item := range items {
		stmts, ok := h.foldModuleItem(item)
		if !ok {
			return nil, false
		}
		out = append(out, h.drainRequiresInStmt()...)
		out = append(out, stmts...)
	}
	return out, true
}

func (h *Hoist) foldModuleItem(s js_ast.Stmt) ([]js_ast.Stmt, bool) {
	switch d := s.Data.(type) {
	case *js_ast.SImport:
		h.addHoistedImport(d.Source, s.Loc)
		return nil, true

	case *js_ast.SExportNamed:
		if d.Source != nil {
			h.addHoistedImport(*d.Source, s.Loc)
			for _, spec := range d.Specifiers {
				h.ReExports = append(h.ReExports, ReExport{Exported: spec.Exported, Source: *d.Source, Local: spec.Orig.Name, Loc: spec.Loc})
			}
			return nil, true
		}
		for _, spec := range d.Specifiers {
			if rec, ok := h.collect.Imports[spec.Orig]; ok {
				h.ReExports = append(h.ReExports, ReExport{Exported: spec.Exported, Source: rec.Source, Local: rec.Local, Loc: spec.Loc})
				continue
			}
			if exportedAs, ok := h.collect.Exports[spec.Orig]; ok {
				h.setExportedSymbol(exportedAs, spec.Orig.Name, spec.Loc)
				continue
			}
			h.setExportedSymbol(spec.Orig.Name, spec.Orig.Name, spec.Loc)
		}
		return nil, true

	case *js_ast.SExportStar:
		h.addHoistedImport(d.Source, s.Loc)
		h.ReExports = append(h.ReExports, ReExport{Exported: "*", Source: d.Source, Local: "*", Loc: d.Loc})
		return nil, true

	case *js_ast.SExportDefaultExpr:
		newVal, ok := h.foldExpr(d.Value)
		if !ok {
			return nil, false
		}
		pending := h.drainRequiresInStmt()
		freshName := h.setExportedSymbol("default", "default", s.Loc)
		decl := js_ast.Stmt{Loc: s.Loc, Data: &js_ast.SLocal{
			Kind: js_ast.LocalVar,
			Decls: []js_ast.Decl{{
				Binding:    js_ast.Binding{Data: &js_ast.BIdentifier{Ref: js_ast.Ref{Name: freshName}}},
				ValueOrNil: newVal,
			}},
		}}
		return append(pending, decl), true

	case *js_ast.SExportDefaultDecl:
		return h.foldExportDefaultDecl(d, s.Loc)

	case *js_ast.SExportDecl:
		return h.foldGenericStmt(js_ast.Stmt{Loc: s.Loc, Data: d.Decl})

	default:
		return h.foldGenericStmt(s)
	}
}

// foldExportDefaultDecl handles "export default class/function [X]".
// spec.md §7 treats any other declaration kind reaching here as an
// invariant violation; SPEC_FULL.md §2.2 additionally carves out the one
// classified diagnostic from spec.md §9's Open Questions (a TS interface
// declaration) rather than panicking on it.
func (h *Hoist) foldExportDefaultDecl(d *js_ast.SExportDefaultDecl, loc logger.Loc) ([]js_ast.Stmt, bool) {
	freshName := h.setExportedSymbol("default", "default", loc)
	switch inner := d.Decl.(type) {
	case *js_ast.SFunction:
		newFn, ok := h.foldFn(inner.Fn)
		if !ok {
			return nil, false
		}
		name := js_ast.Ref{Name: freshName}
		newFn.Name = &name
		return []js_ast.Stmt{{Loc: loc, Data: &js_ast.SFunction{Fn: newFn}}}, true
	case *js_ast.SClass:
		newClass, ok := h.foldClass(inner.Class)
		if !ok {
			return nil, false
		}
		name := js_ast.Ref{Name: freshName}
		newClass.Name = &name
		return []js_ast.Stmt{{Loc: loc, Data: &js_ast.SClass{Class: newClass}}}, true
	case *unsupportedExportDefaultDecl:
		if h.opts.Log.AddMsg != nil {
			h.opts.Log.AddError(h.opts.Source, loc, "unsupported export default declaration kind")
		}
		return nil, false
	default:
		panic("Internal error")
	}
}

// unsupportedExportDefaultDecl stands in for a TS interface declaration
// (spec.md §9, Open Questions), which js_ast has no node for, so that the
// classified-error path is taken instead of the generic panic. It satisfies
// js_ast.S by embedding it; only code in this package can construct one.
type unsupportedExportDefaultDecl struct{ js_ast.S }

// foldGenericStmt folds any statement that can appear both at the top
// level and nested inside a block/function.
func (h *Hoist) foldGenericStmt(s js_ast.Stmt) ([]js_ast.Stmt, bool) {
	switch d := s.Data.(type) {
	case *js_ast.SLocal:
		return h.foldLocalWithSplitting(d, s.Loc)

	case *js_ast.SFunction:
		newFn, ok := h.foldFn(d.Fn)
		if !ok {
			return nil, false
		}
		if newFn.Name != nil {
			*newFn.Name = h.rewriteTopLevelBindingRef(*newFn.Name)
		}
		return []js_ast.Stmt{{Loc: s.Loc, Data: &js_ast.SFunction{Fn: newFn}}}, true

	case *js_ast.SClass:
		newClass, ok := h.foldClass(d.Class)
		if !ok {
			return nil, false
		}
		if newClass.Name != nil {
			*newClass.Name = h.rewriteTopLevelBindingRef(*newClass.Name)
		}
		return []js_ast.Stmt{{Loc: s.Loc, Data: &js_ast.SClass{Class: newClass}}}, true

	case *js_ast.SBlock:
		newStmts, ok := h.foldModule(d.Stmts)
		if !ok {
			return nil, false
		}
		return []js_ast.Stmt{{Loc: s.Loc, Data: &js_ast.SBlock{Stmts: newStmts}}}, true

	case *js_ast.SExpr:
		newVal, ok := h.foldExpr(d.Value)
		if !ok {
			return nil, false
		}
		return []js_ast.Stmt{{Loc: s.Loc, Data: &js_ast.SExpr{Value: newVal}}}, true

	case *js_ast.SReturn:
		if d.ValueOrNil.IsNil() {
			return []js_ast.Stmt{s}, true
		}
		newVal, ok := h.foldExpr(d.ValueOrNil)
		if !ok {
			return nil, false
		}
		return []js_ast.Stmt{{Loc: s.Loc, Data: &js_ast.SReturn{ValueOrNil: newVal}}}, true

	default:
		return []js_ast.Stmt{s}, true
	}
}

// rewriteTopLevelBindingRef renames a declaration's own binding identifier
// (a function or class declaration's name) using the same export/var rule
// as an ordinary reference to it.
func (h *Hoist) rewriteTopLevelBindingRef(ref js_ast.Ref) js_ast.Ref {
	rewritten := h.rewriteIdentRef(ref, logger.Loc{})
	if ident, ok := rewritten.Data.(*js_ast.EIdentifier); ok {
		return ident.Ref
	}
	return ref
}

// foldLocalWithSplitting implements "Variable declaration splitting"
// (spec.md §4.2).
func (h *Hoist) foldLocalWithSplitting(d *js_ast.SLocal, loc logger.Loc) ([]js_ast.Stmt, bool) {
	var out []js_ast.Stmt
	var pending []js_ast.Decl
	flush := func() {
		if len(pending) > 0 {
			out = append(out, js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: d.Kind, Decls: pending}})
			pending = nil
		}
	}

	for _, decl := range d.Decls {
		if s, ok := matchRequire(h.opts.Decls, decl.ValueOrNil); ok && !h.collect.NonStaticRequires[s] {
			flush()
			h.addHoistedImport(s, loc)
			continue
		}
		if s, _, ok := matchRequireMember(h.opts.Decls, decl.ValueOrNil); ok && !h.collect.NonStaticRequires[s] {
			flush()
			h.addHoistedImport(s, loc)
			continue
		}

		newBinding, ok := h.foldBinding(decl.Binding)
		if !ok {
			return nil, false
		}
		var newVal js_ast.Expr
		if !decl.ValueOrNil.IsNil() {
			v, ok := h.foldExpr(decl.ValueOrNil)
			if !ok {
				return nil, false
			}
			newVal = v
		}
		if deferred := h.drainRequiresInStmt(); len(deferred) > 0 {
			flush()
			out = append(out, deferred...)
		}
		pending = append(pending, js_ast.Decl{Binding: newBinding, ValueOrNil: newVal})
	}
	flush()
	return out, true
}

// ---- bindings --------------------------------------------------------------

func (h *Hoist) foldBinding(b js_ast.Binding) (js_ast.Binding, bool) {
	switch d := b.Data.(type) {
	case *js_ast.BIdentifier:
		return js_ast.Binding{Loc: b.Loc, Data: &js_ast.BIdentifier{Ref: h.rewriteTopLevelBindingRef(d.Ref)}}, true

	case *js_ast.BObject:
		newProps := make([]js_ast.PropertyBinding, len(d.Properties))
		for i, p := range d.Properties {
			newValue, ok := h.foldBinding(p.Value)
			if !ok {
				return js_ast.Binding{}, false
			}
			var newDefault js_ast.Expr
			if !p.DefaultValueOrNil.IsNil() {
				v, ok := h.foldExpr(p.DefaultValueOrNil)
				if !ok {
					return js_ast.Binding{}, false
				}
				newDefault = v
			}
			newKey := p.Key
			wasShorthand := p.WasShorthand
			if wasShorthand {
				if orig, ok := staticKeyName(p.Key); ok {
					if ident, ok := newValue.Data.(*js_ast.BIdentifier); !ok || ident.Ref.Name != orig {
						wasShorthand = false
					}
				}
			}
			newProps[i] = js_ast.PropertyBinding{
				Key: newKey, Value: newValue, DefaultValueOrNil: newDefault,
				IsComputed: p.IsComputed, IsRest: p.IsRest, WasShorthand: wasShorthand,
			}
		}
		return js_ast.Binding{Loc: b.Loc, Data: &js_ast.BObject{Properties: newProps}}, true

	case *js_ast.BArray:
		newItems := make([]js_ast.ArrayBindingItem, len(d.Items))
		for i, item := range d.Items {
			if item.Binding.IsNil() {
				newItems[i] = item
				continue
			}
			newBinding, ok := h.foldBinding(item.Binding)
			if !ok {
				return js_ast.Binding{}, false
			}
			var newDefault js_ast.Expr
			if !item.DefaultValueOrNil.IsNil() {
				v, ok := h.foldExpr(item.DefaultValueOrNil)
				if !ok {
					return js_ast.Binding{}, false
				}
				newDefault = v
			}
			newItems[i] = js_ast.ArrayBindingItem{Binding: newBinding, DefaultValueOrNil: newDefault}
		}
		return js_ast.Binding{Loc: b.Loc, Data: &js_ast.BArray{Items: newItems, HasRest: d.HasRest}}, true

	default:
		return b, true
	}
}

// ---- identifier & member rewriting -----------------------------------------

// rewriteIdentRef implements "Identifier references" (spec.md §4.2).
func (h *Hoist) rewriteIdentRef(ref js_ast.Ref, loc logger.Loc) js_ast.Expr {
	if rec, ok := h.collect.Imports[ref]; ok && !h.collect.NonStaticRequires[rec.Source] {
		switch {
		case !rec.IsAsync:
			var name string
			if rec.Local == "*" {
				name = freshImportNamespaceName(h.opts.ModuleID, rec.Source)
			} else {
				name = freshImportName(h.opts.ModuleID, rec.Source, rec.Local)
			}
			h.recordImportedSymbol(name, rec.Source, rec.Local, loc, rec.Kind)
			return identExpr(name, loc)
		case rec.Local != "*":
			name := freshImportAsyncName(h.opts.ModuleID, rec.Source, rec.Local)
			h.recordImportedSymbol(name, rec.Source, rec.Local, loc, rec.Kind)
			return identExpr(ref.Name, loc)
		case h.collect.NonStaticAccess[ref]:
			name := freshImportAsyncNamespaceName(h.opts.ModuleID, rec.Source)
			h.recordImportedSymbol(name, rec.Source, rec.Local, loc, rec.Kind)
			return identExpr(ref.Name, loc)
		default:
			return identExpr(ref.Name, loc)
		}
	}

	if exportedAs, ok := h.collect.Exports[ref]; ok {
		freshName := h.setExportedSymbol(exportedAs, ref.Name, loc)
		if h.collect.ShouldWrap {
			return identExpr(ref.Name, loc)
		}
		return identExpr(freshName, loc)
	}

	if ref.Name == "exports" && !h.opts.Decls[ref] {
		if h.collect.ShouldWrap {
			return identExpr(ref.Name, loc)
		}
		h.SelfReferences["*"] = true
		return identExpr(wholeModuleExportName(h.opts.ModuleID), loc)
	}

	if ref.Name == "global" && !h.opts.Decls[ref] {
		return identExpr(globalRewrite, loc)
	}

	if !h.collect.ShouldWrap && ref.Ctxt == h.opts.GlobalMark && h.opts.Decls[ref] {
		return identExpr(freshVarName(h.opts.ModuleID, ref.Name), loc)
	}

	return identExpr(ref.Name, loc)
}

// foldStaticMember implements the "Member expressions" rules of spec.md
// §4.2 that apply to an object.key-shaped access. ok is false when none of
// the special-cased shapes match, telling the caller to fold generically.
func (h *Hoist) foldStaticMember(target js_ast.Expr, key string, keyLoc, origLoc logger.Loc) (js_ast.Expr, bool) {
	if name, free := freeIdentName(target, h.opts.Decls); free && name == "module" && key == "exports" && !h.collect.ShouldWrap {
		h.SelfReferences["*"] = true
		return identExpr(wholeModuleExportName(h.opts.ModuleID), origLoc), true
	}

	if ident, isIdent := target.Data.(*js_ast.EIdentifier); isIdent {
		if rec, ok := h.collect.Imports[ident.Ref]; ok && rec.Local == "*" &&
			!h.collect.NonStaticAccess[ident.Ref] && !h.collect.NonStaticRequires[rec.Source] {
			if !rec.IsAsync {
				name := freshImportName(h.opts.ModuleID, rec.Source, key)
				h.recordImportedSymbol(name, rec.Source, key, origLoc, rec.Kind)
				return identExpr(name, origLoc), true
			}
			name := freshImportAsyncName(h.opts.ModuleID, rec.Source, key)
			h.recordImportedSymbol(name, rec.Source, key, origLoc, rec.Kind)
			return js_ast.Expr{Loc: origLoc, Data: &js_ast.EDot{Target: target, Name: key, NameLoc: keyLoc}}, true
		}
	}

	if s, ok := matchRequire(h.opts.Decls, target); ok {
		name := freshImportName(h.opts.ModuleID, s, key)
		h.recordImportedSymbol(name, s, key, origLoc, ast.ImportRequire)
		h.deferRequire(s, origLoc)
		return identExpr(name, origLoc), true
	}

	if h.isExportsLikeTarget(target, false) && h.collect.StaticCJSExports && !h.collect.ShouldWrap {
		h.SelfReferences[key] = true
		freshName := h.setExportedSymbol(key, key, origLoc)
		return identExpr(freshName, origLoc), true
	}

	return js_ast.Expr{}, false
}

// isExportsLikeTarget reports whether target denotes the CJS exports
// object: free "exports", exact "module.exports", or ("this" while
// !inFunctionScope && !IsESM, the Hoist-local variant of the "this.K"
// rule — distinct from Collect's in_module_this, per spec.md §4.2).
func (h *Hoist) isExportsLikeTarget(target js_ast.Expr, _ bool) bool {
	if name, free := freeIdentName(target, h.opts.Decls); free && name == "exports" {
		return true
	}
	if dotTarget, key, _, ok := matchMemberExpr(target); ok && key == "exports" {
		if name, free := freeIdentName(dotTarget, h.opts.Decls); free && name == "module" {
			return true
		}
	}
	if _, isThis := target.Data.(*js_ast.EThis); isThis {
		return !h.inFunctionScope && !h.collect.IsESM
	}
	return false
}

// ---- expressions -----------------------------------------------------------

func (h *Hoist) foldExpr(e js_ast.Expr) (js_ast.Expr, bool) {
	if target, key, keyLoc, ok := matchMemberExpr(e); ok {
		if rewritten, matched := h.foldStaticMember(target, key, keyLoc, e.Loc); matched {
			return rewritten, true
		}
		newTarget, ok := h.foldExpr(target)
		if !ok {
			return js_ast.Expr{}, false
		}
		switch d := e.Data.(type) {
		case *js_ast.EDot:
			return js_ast.Expr{Loc: e.Loc, Data: &js_ast.EDot{Target: newTarget, Name: d.Name, NameLoc: d.NameLoc}}, true
		case *js_ast.EIndex:
			return js_ast.Expr{Loc: e.Loc, Data: &js_ast.EIndex{Target: newTarget, Index: d.Index}}, true
		}
	}

	switch d := e.Data.(type) {
	case *js_ast.EIdentifier:
		return h.rewriteIdentRef(d.Ref, e.Loc), true

	case *js_ast.EThis:
		if !h.inFunctionScope && !h.collect.ShouldWrap {
			if h.collect.IsESM {
				return identExpr("undefined", e.Loc), true
			}
			h.SelfReferences["*"] = true
			return identExpr(wholeModuleExportName(h.opts.ModuleID), e.Loc), true
		}
		return e, true

	case *js_ast.EIndex:
		newTarget, ok := h.foldExpr(d.Target)
		if !ok {
			return js_ast.Expr{}, false
		}
		newIndex, ok := h.foldExpr(d.Index)
		if !ok {
			return js_ast.Expr{}, false
		}
		return js_ast.Expr{Loc: e.Loc, Data: &js_ast.EIndex{Target: newTarget, Index: newIndex}}, true

	case *js_ast.EUnary:
		if d.Op == js_ast.UnOpTypeof {
			if name, free := freeIdentName(d.Value, h.opts.Decls); free && name == "require" {
				return js_ast.Expr{Loc: e.Loc, Data: &js_ast.EString{Value: "function"}}, true
			}
		}
		newVal, ok := h.foldExpr(d.Value)
		if !ok {
			return js_ast.Expr{}, false
		}
		return js_ast.Expr{Loc: e.Loc, Data: &js_ast.EUnary{Op: d.Op, Value: newVal}}, true

	case *js_ast.ECall:
		return h.foldCall(e, d)

	case *js_ast.EAwait:
		newVal, ok := h.foldExpr(d.Value)
		if !ok {
			return js_ast.Expr{}, false
		}
		return js_ast.Expr{Loc: e.Loc, Data: &js_ast.EAwait{Value: newVal}}, true

	case *js_ast.ESeq:
		return h.foldSeq(e, d)

	case *js_ast.EObject:
		newProps := make([]js_ast.Property, len(d.Properties))
		for i, p := range d.Properties {
			newValue, ok := h.foldExpr(p.Value)
			if !ok {
				return js_ast.Expr{}, false
			}
			wasShorthand := p.WasShorthand
			if wasShorthand {
				if orig, ok := staticKeyName(p.Key); ok {
					if ident, ok := newValue.Data.(*js_ast.EIdentifier); !ok || ident.Ref.Name != orig {
						wasShorthand = false
					}
				}
			}
			newProps[i] = js_ast.Property{Key: p.Key, Value: newValue, WasShorthand: wasShorthand}
		}
		return js_ast.Expr{Loc: e.Loc, Data: &js_ast.EObject{Properties: newProps}}, true

	case *js_ast.EArray:
		newItems := make([]js_ast.Expr, len(d.Items))
		for i, item := range d.Items {
			if item.IsNil() {
				continue
			}
			v, ok := h.foldExpr(item)
			if !ok {
				return js_ast.Expr{}, false
			}
			newItems[i] = v
		}
		return js_ast.Expr{Loc: e.Loc, Data: &js_ast.EArray{Items: newItems}}, true

	case *js_ast.EAssign:
		return h.foldAssign(d, e.Loc)

	case *js_ast.EArrow:
		newBody, ok := h.foldModule(d.Body)
		if !ok {
			return js_ast.Expr{}, false
		}
		newParams := make([]js_ast.Binding, len(d.Params))
		for i, p := range d.Params {
			np, ok := h.foldBinding(p)
			if !ok {
				return js_ast.Expr{}, false
			}
			newParams[i] = np
		}
		return js_ast.Expr{Loc: e.Loc, Data: &js_ast.EArrow{Params: newParams, Body: newBody, IsAsync: d.IsAsync}}, true

	case *js_ast.EFunction:
		newFn, ok := h.foldFn(d.Fn)
		if !ok {
			return js_ast.Expr{}, false
		}
		return js_ast.Expr{Loc: e.Loc, Data: &js_ast.EFunction{Fn: newFn}}, true

	case *js_ast.EClass:
		newClass, ok := h.foldClass(d.Class)
		if !ok {
			return js_ast.Expr{}, false
		}
		return js_ast.Expr{Loc: e.Loc, Data: &js_ast.EClass{Class: newClass}}, true

	case *js_ast.ESpread:
		newVal, ok := h.foldExpr(d.Value)
		if !ok {
			return js_ast.Expr{}, false
		}
		return js_ast.Expr{Loc: e.Loc, Data: &js_ast.ESpread{Value: newVal}}, true

	default:
		return e, true
	}
}

// foldCall implements "Call expressions" (spec.md §4.2): bare require(s)
// and import(s) calls, falling back to a generic call fold.
func (h *Hoist) foldCall(e js_ast.Expr, d *js_ast.ECall) (js_ast.Expr, bool) {
	if s, ok := matchRequire(h.opts.Decls, e); ok {
		h.deferRequire(s, e.Loc)
		return identExpr(freshImportNamespaceName(h.opts.ModuleID, s), e.Loc), true
	}
	if s, ok := matchImport(h.opts.IgnoreMark, e); ok {
		name := freshImportAsyncNamespaceName(h.opts.ModuleID, s)
		h.DynamicImports[name] = s
		h.deferRequire(s, e.Loc)
		if h.collect.NonStaticRequires[s] || h.collect.ShouldWrap {
			h.recordImportedSymbol(name, s, "*", e.Loc, ast.ImportDynamic)
		}
		return identExpr(name, e.Loc), true
	}

	newTarget, ok := h.foldExpr(d.Target)
	if !ok {
		return js_ast.Expr{}, false
	}
	newArgs := make([]js_ast.Expr, len(d.Args))
	for i, a := range d.Args {
		na, ok := h.foldExpr(a)
		if !ok {
			return js_ast.Expr{}, false
		}
		newArgs[i] = na
	}
	return js_ast.Expr{Loc: e.Loc, Data: &js_ast.ECall{Target: newTarget, Args: newArgs}}, true
}

// foldSeq implements "Sequence expressions" (spec.md §4.2): non-final bare
// require() calls are wrapped in a logical NOT so a later dead-code-
// elimination pass over the flattened bundle cannot observe the call as a
// value-discarding, side-effect-free expression and strip it.
func (h *Hoist) foldSeq(e js_ast.Expr, d *js_ast.ESeq) (js_ast.Expr, bool) {
	n := len(d.Exprs)
	newExprs := make([]js_ast.Expr, n)
	for i, sub := range d.Exprs {
		_, wasRequire := matchRequire(h.opts.Decls, sub)
		folded, ok := h.foldExpr(sub)
		if !ok {
			return js_ast.Expr{}, false
		}
		if i < n-1 && wasRequire {
			folded = js_ast.Expr{Loc: folded.Loc, Data: &js_ast.EUnary{Op: js_ast.UnOpNot, Value: folded}}
		}
		newExprs[i] = folded
	}
	return js_ast.Expr{Loc: e.Loc, Data: &js_ast.ESeq{Exprs: newExprs}}, true
}

// foldAssign implements "Assignment rewriting" (spec.md §4.2).
func (h *Hoist) foldAssign(d *js_ast.EAssign, origLoc logger.Loc) (js_ast.Expr, bool) {
	if d.TargetPattern != nil {
		// Destructuring target (`[exports] = rhs`, `({foo} = require('x'))`):
		// the pattern is left as it is and only rhs is folded. Collect has
		// already set should_wrap for a free `exports` in the pattern and
		// marked a require()'d source non-static (Open Question #1 in
		// DESIGN.md).
		newVal, ok := h.foldExpr(d.Value)
		if !ok {
			return js_ast.Expr{}, false
		}
		return js_ast.Expr{Loc: origLoc, Data: &js_ast.EAssign{TargetPattern: d.TargetPattern, Value: newVal}}, true
	}

	target := *d.TargetExpr

	// Wrapping mode leaves CJS exports/module.exports expressions intact
	// (spec.md §4.2, "Wrapping mode"): the wrapper closure provides real
	// `module`/`exports` locals, so the special-cased rewrites below must
	// not fire. Mirrors hoist.rs's fold_assign_expr short-circuit.
	if !h.collect.ShouldWrap {
		if objTarget, key, keyLoc, ok := matchMemberExpr(target); ok {
			if name, free := freeIdentName(objTarget, h.opts.Decls); free && name == "module" && key == "exports" {
				newVal, ok := h.foldExpr(d.Value)
				if !ok {
					return js_ast.Expr{}, false
				}
				h.SelfReferences["*"] = true
				newTarget := identExpr(wholeModuleExportName(h.opts.ModuleID), target.Loc)
				return js_ast.Expr{Loc: origLoc, Data: &js_ast.EAssign{TargetExpr: exprPtr(newTarget), Value: newVal}}, true
			}

			if h.isExportsLikeTarget(objTarget, false) {
				newVal, ok := h.foldExpr(d.Value)
				if !ok {
					return js_ast.Expr{}, false
				}
				if h.collect.StaticCJSExports {
					h.ExportDecls[key] = true
					newTarget := identExpr(freshExportName(h.opts.ModuleID, key), keyLoc)
					return js_ast.Expr{Loc: origLoc, Data: &js_ast.EAssign{TargetExpr: exprPtr(newTarget), Value: newVal}}, true
				}
				newObj := identExpr(wholeModuleExportName(h.opts.ModuleID), objTarget.Loc)
				newTarget := js_ast.Expr{Loc: target.Loc, Data: &js_ast.EDot{Target: newObj, Name: key, NameLoc: keyLoc}}
				return js_ast.Expr{Loc: origLoc, Data: &js_ast.EAssign{TargetExpr: exprPtr(newTarget), Value: newVal}}, true
			}
		}
	}

	newTarget, ok := h.foldExpr(target)
	if !ok {
		return js_ast.Expr{}, false
	}
	newVal, ok := h.foldExpr(d.Value)
	if !ok {
		return js_ast.Expr{}, false
	}
	return js_ast.Expr{Loc: origLoc, Data: &js_ast.EAssign{TargetExpr: exprPtr(newTarget), Value: newVal}}, true
}

// ---- functions & classes ---------------------------------------------------

func (h *Hoist) foldFn(fn *js_ast.Fn) (*js_ast.Fn, bool) {
	wasFn := h.inFunctionScope
	h.inFunctionScope = true
	defer func() { h.inFunctionScope = wasFn }()

	newParams := make([]js_ast.Binding, len(fn.Params))
	for i, p := range fn.Params {
		np, ok := h.foldBinding(p)
		if !ok {
			return nil, false
		}
		newParams[i] = np
	}
	newBody, ok := h.foldModule(fn.Body)
	if !ok {
		return nil, false
	}
	return &js_ast.Fn{Name: fn.Name, Params: newParams, Body: newBody, IsAsync: fn.IsAsync}, true
}

func (h *Hoist) foldClass(cls *js_ast.Class) (*js_ast.Class, bool) {
	wasFn := h.inFunctionScope
	h.inFunctionScope = true
	defer func() { h.inFunctionScope = wasFn }()

	var newExtends js_ast.Expr
	if !cls.ExtendsNil.IsNil() {
		v, ok := h.foldExpr(cls.ExtendsNil)
		if !ok {
			return nil, false
		}
		newExtends = v
	}
	newMembers := make([]js_ast.ClassMember, len(cls.Members))
	for i, m := range cls.Members {
		newKey, ok := h.foldExpr(m.Key)
		if !ok {
			return nil, false
		}
		var newFn *js_ast.Fn
		if m.Fn != nil {
			nf, ok := h.foldFn(m.Fn)
			if !ok {
				return nil, false
			}
			newFn = nf
		}
		newMembers[i] = js_ast.ClassMember{Key: newKey, Fn: newFn, IsStatic: m.IsStatic}
	}
	return &js_ast.Class{Name: cls.Name, ExtendsNil: newExtends, Members: newMembers}, true
}
