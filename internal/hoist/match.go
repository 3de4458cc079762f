package hoist

import (
	"strconv"

	"github.com/bundlejs/scopehoist/internal/js_ast"
	"github.com/bundlejs/scopehoist/internal/logger"
)

// matchRequire recognizes `require(s)`: a call whose callee is a free,
// non-shadowed identifier named "require" and whose sole argument is a
// string literal.
func matchRequire(decls map[js_ast.Ref]bool, e js_ast.Expr) (source string, ok bool) {
	call, ok := e.Data.(*js_ast.ECall)
	if !ok {
		return "", false
	}
	ident, ok := call.Target.Data.(*js_ast.EIdentifier)
	if !ok || ident.Ref.Name != "require" || decls[ident.Ref] {
		return "", false
	}
	if len(call.Args) != 1 {
		return "", false
	}
	str, ok := call.Args[0].Data.(*js_ast.EString)
	if !ok {
		return "", false
	}
	return str.Value, true
}

// matchImport recognizes `import(s)`. The callee is SWC's pseudo-identifier
// "import"; it is never a real binding, so it is checked against ignoreMark
// instead of decls (spec.md §4.1, "Require & dynamic import recognition").
func matchImport(ignoreMark js_ast.ScopeCtxt, e js_ast.Expr) (source string, ok bool) {
	call, ok := e.Data.(*js_ast.ECall)
	if !ok {
		return "", false
	}
	ident, ok := call.Target.Data.(*js_ast.EIdentifier)
	if !ok || ident.Ref.Name != "import" || isMarked(ident.Ref.Ctxt, ignoreMark) {
		return "", false
	}
	if len(call.Args) != 1 {
		return "", false
	}
	str, ok := call.Args[0].Data.(*js_ast.EString)
	if !ok {
		return "", false
	}
	return str.Value, true
}

// matchAwaitImport recognizes `await import(s)`.
func matchAwaitImport(ignoreMark js_ast.ScopeCtxt, e js_ast.Expr) (string, bool) {
	await, ok := e.Data.(*js_ast.EAwait)
	if !ok {
		return "", false
	}
	return matchImport(ignoreMark, await.Value)
}

// matchMemberExpr recognizes a static member access: "obj.name" or
// "obj['name']" with a string-literal key. Both EDot and an EIndex carrying
// a literal key are treated identically — spec.md repeats "(or … with
// string literal)" at every static-member rule, so there is exactly one
// place that decides what counts as static.
func matchMemberExpr(e js_ast.Expr) (target js_ast.Expr, key string, keyLoc logger.Loc, ok bool) {
	switch d := e.Data.(type) {
	case *js_ast.EDot:
		return d.Target, d.Name, d.NameLoc, true
	case *js_ast.EIndex:
		if str, ok := d.Index.Data.(*js_ast.EString); ok {
			return d.Target, str.Value, d.Index.Loc, true
		}
	}
	return js_ast.Expr{}, "", logger.Loc{}, false
}

// matchRequireMember recognizes "require(s).K" or "require(s)['K']".
func matchRequireMember(decls map[js_ast.Ref]bool, e js_ast.Expr) (source, key string, ok bool) {
	target, key, _, ok := matchMemberExpr(e)
	if !ok {
		return "", "", false
	}
	source, ok = matchRequire(decls, target)
	return source, key, ok
}

// staticKeyName extracts the textual key of an object-literal/pattern
// property whose key is an identifier or string literal.
func staticKeyName(e js_ast.Expr) (string, bool) {
	switch d := e.Data.(type) {
	case *js_ast.EIdentifier:
		return d.Ref.Name, true
	case *js_ast.EString:
		return d.Value, true
	}
	return "", false
}

func freeIdentName(e js_ast.Expr, decls map[js_ast.Ref]bool) (string, bool) {
	ident, ok := e.Data.(*js_ast.EIdentifier)
	if !ok || decls[ident.Ref] {
		return "", false
	}
	return ident.Ref.Name, true
}

// isMarked reports whether ctxt carries mark. Real SWC syntax contexts are a
// chain of composed marks; this module only ever needs single-mark equality
// (no macro-style mark composition occurs downstream of the resolver this
// pass is handed), so the chain itself is not modeled — see
// js_ast.ScopeCtxt's doc comment.
func isMarked(ctxt, mark js_ast.ScopeCtxt) bool {
	return mark != 0 && ctxt == mark
}

// hashString is spec.md §6's hash function: a 64-bit, deterministic digest
// formatted as lowercase hex with no leading zeros. FNV-1a's 64-bit variant
// is seedless (unlike hash/maphash) so it reproduces identically across
// runs and across processes, which is the one hard requirement — see
// DESIGN.md for why no pack dependency covers this.
func hashString(s string) string {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	var h uint64 = offset64
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return strconv.FormatUint(h, 16)
}

// Fresh-name schema, spec.md §3.

func freshImportName(moduleID, source, local string) string {
	return "$" + moduleID + "$import$" + hashString(source) + "$" + hashString(local)
}

func freshImportNamespaceName(moduleID, source string) string {
	return "$" + moduleID + "$import$" + hashString(source)
}

func freshImportAsyncName(moduleID, source, local string) string {
	return "$" + moduleID + "$importAsync$" + hashString(source) + "$" + hashString(local)
}

func freshImportAsyncNamespaceName(moduleID, source string) string {
	return "$" + moduleID + "$importAsync$" + hashString(source)
}

func freshExportName(moduleID, exported string) string {
	return "$" + moduleID + "$export$" + exported
}

func wholeModuleExportName(moduleID string) string {
	return "$" + moduleID + "$exports"
}

func freshVarName(moduleID, name string) string {
	return "$" + moduleID + "$var$" + name
}

const globalRewrite = "$parcel$global"

func identExpr(name string, loc logger.Loc) js_ast.Expr {
	return js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: js_ast.Ref{Name: name}}}
}

func exprPtr(e js_ast.Expr) *js_ast.Expr { return &e }
