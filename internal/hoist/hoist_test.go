package hoist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bundlejs/scopehoist/internal/js_ast"
)

func runHoist(t *testing.T, module *js_ast.Module, decls map[js_ast.Ref]bool) (*js_ast.Module, Result) {
	t.Helper()
	newModule, result, ok := Run(module, Options{ModuleID: "abc1", Decls: decls})
	require.True(t, ok)
	return newModule, result
}

func TestHoistStaticRequireRecordedAsImportedSymbol(t *testing.T) {
	// const foo = require("bar"); use(foo)
	fooRef := js_ast.Ref{Name: "foo"}
	module := &js_ast.Module{Body: []js_ast.Stmt{
		localVar("foo", call(ident("require"), str("bar"))),
		exprStmt(call(ident("use"), ident("foo"))),
	}}

	_, result := runHoist(t, module, map[js_ast.Ref]bool{fooRef: true})

	name := freshImportNamespaceName("abc1", "bar")
	if assert.Contains(t, result.ImportedSymbols, name) {
		sym := result.ImportedSymbols[name]
		assert.Equal(t, "bar", sym.Source)
		assert.Equal(t, "*", sym.Local)
	}
}

func TestHoistExportsDotAssignmentBecomesFreshExportVar(t *testing.T) {
	// exports.foo = 1
	module := &js_ast.Module{Body: []js_ast.Stmt{
		exprStmt(js_ast.Expr{Data: &js_ast.EAssign{
			TargetExpr: exprPtr(dot(ident("exports"), "foo")),
			Value:      js_ast.Expr{Data: &js_ast.ENumber{Value: 1}},
		}}),
	}}

	newModule, _ := runHoist(t, module, map[js_ast.Ref]bool{})

	var foundDecl, foundAssign bool
	for _, s := range newModule.Body {
		if local, ok := s.Data.(*js_ast.SLocal); ok {
			for _, d := range local.Decls {
				if bid, ok := d.Binding.Data.(*js_ast.BIdentifier); ok && bid.Ref.Name == freshExportName("abc1", "foo") {
					foundDecl = true
				}
			}
		}
		if exprS, ok := s.Data.(*js_ast.SExpr); ok {
			if assign, ok := exprS.Value.Data.(*js_ast.EAssign); ok {
				if ident, ok := assign.TargetExpr.Data.(*js_ast.EIdentifier); ok && ident.Ref.Name == freshExportName("abc1", "foo") {
					foundAssign = true
				}
			}
		}
	}
	assert.True(t, foundDecl, "expected a synthesized $abc1$export$foo declaration")
	assert.True(t, foundAssign, "expected the assignment target rewritten to $abc1$export$foo")
}

func TestHoistModuleExportsExactBecomesWholeModuleExport(t *testing.T) {
	// module.exports = 1
	module := &js_ast.Module{Body: []js_ast.Stmt{
		exprStmt(js_ast.Expr{Data: &js_ast.EAssign{
			TargetExpr: exprPtr(dot(ident("module"), "exports")),
			Value:      js_ast.Expr{Data: &js_ast.ENumber{Value: 1}},
		}}),
	}}

	newModule, result := runHoist(t, module, map[js_ast.Ref]bool{})

	require.Len(t, newModule.Body, 1)
	assign, ok := newModule.Body[0].Data.(*js_ast.SExpr).Value.Data.(*js_ast.EAssign)
	require.True(t, ok)
	target, ok := assign.TargetExpr.Data.(*js_ast.EIdentifier)
	require.True(t, ok)
	assert.Equal(t, wholeModuleExportName("abc1"), target.Ref.Name)
	assert.True(t, result.SelfReferences["*"])
}

func TestHoistDynamicImportRecordsDynamicImportTable(t *testing.T) {
	// import("bar")
	module := &js_ast.Module{Body: []js_ast.Stmt{
		exprStmt(call(js_ast.Expr{Data: &js_ast.EIdentifier{Ref: js_ast.Ref{Name: "import"}}}, str("bar"))),
	}}

	_, result := runHoist(t, module, map[js_ast.Ref]bool{})

	name := freshImportAsyncNamespaceName("abc1", "bar")
	assert.Equal(t, "bar", result.DynamicImports[name])
}

func TestHoistBareImportHoistedOncePerSource(t *testing.T) {
	// const a = require("x"); const b = require("x")
	module := &js_ast.Module{Body: []js_ast.Stmt{
		localVar("a", call(ident("require"), str("x"))),
		localVar("b", call(ident("require"), str("x"))),
	}}
	decls := map[js_ast.Ref]bool{{Name: "a"}: true, {Name: "b"}: true}

	newModule, _ := runHoist(t, module, decls)

	count := 0
	for _, s := range newModule.Body {
		if imp, ok := s.Data.(*js_ast.SImport); ok && imp.Source == "abc1:x" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestHoistWrappingLeavesCJSExportsIntact(t *testing.T) {
	// eval(x); module.exports.foo = 1;
	module := &js_ast.Module{Body: []js_ast.Stmt{
		exprStmt(call(ident("eval"), ident("x"))),
		exprStmt(js_ast.Expr{Data: &js_ast.EAssign{
			TargetExpr: exprPtr(dot(dot(ident("module"), "exports"), "foo")),
			Value:      js_ast.Expr{Data: &js_ast.ENumber{Value: 1}},
		}}),
	}}

	newModule, result := runHoist(t, module, map[js_ast.Ref]bool{})

	require.True(t, result.ShouldWrap)
	require.Len(t, newModule.Body, 2)

	assign, ok := newModule.Body[1].Data.(*js_ast.SExpr).Value.Data.(*js_ast.EAssign)
	require.True(t, ok)
	outer, ok := assign.TargetExpr.Data.(*js_ast.EDot)
	require.True(t, ok)
	assert.Equal(t, "foo", outer.Name)
	inner, ok := outer.Target.Data.(*js_ast.EDot)
	require.True(t, ok)
	assert.Equal(t, "exports", inner.Name)
	innerTarget, ok := inner.Target.Data.(*js_ast.EIdentifier)
	require.True(t, ok)
	assert.Equal(t, "module", innerTarget.Ref.Name)
}
