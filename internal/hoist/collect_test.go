package hoist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bundlejs/scopehoist/internal/ast"
	"github.com/bundlejs/scopehoist/internal/js_ast"
)

// ident builds a free (unbound) reference with the given name.
func ident(name string) js_ast.Expr {
	return js_ast.Expr{Data: &js_ast.EIdentifier{Ref: js_ast.Ref{Name: name}}}
}

func str(v string) js_ast.Expr {
	return js_ast.Expr{Data: &js_ast.EString{Value: v}}
}

func dot(target js_ast.Expr, name string) js_ast.Expr {
	return js_ast.Expr{Data: &js_ast.EDot{Target: target, Name: name}}
}

func call(target js_ast.Expr, args ...js_ast.Expr) js_ast.Expr {
	return js_ast.Expr{Data: &js_ast.ECall{Target: target, Args: args}}
}

func exprStmt(e js_ast.Expr) js_ast.Stmt {
	return js_ast.Stmt{Data: &js_ast.SExpr{Value: e}}
}

func localVar(name string, value js_ast.Expr) js_ast.Stmt {
	return js_ast.Stmt{Data: &js_ast.SLocal{
		Kind: js_ast.LocalConst,
		Decls: []js_ast.Decl{{
			Binding:    js_ast.Binding{Data: &js_ast.BIdentifier{Ref: js_ast.Ref{Name: name}}},
			ValueOrNil: value,
		}},
	}}
}

func TestCollectStaticRequire(t *testing.T) {
	// const foo = require("bar")
	module := &js_ast.Module{Body: []js_ast.Stmt{
		localVar("foo", call(ident("require"), str("bar"))),
	}}

	fooRef := js_ast.Ref{Name: "foo"}
	decls := map[js_ast.Ref]bool{fooRef: true}

	c := newCollect(decls, 0)
	c.run(module)

	if assert.Contains(t, c.Imports, fooRef) {
		rec := c.Imports[fooRef]
		assert.Equal(t, "bar", rec.Source)
		assert.Equal(t, "*", rec.Local)
		assert.False(t, rec.IsAsync)
		assert.Equal(t, ast.ImportRequire, rec.Kind)
	}
	assert.False(t, c.ShouldWrap)
}

func TestCollectModuleExportsAssignmentSetsCJSFlags(t *testing.T) {
	// module.exports = 1
	module := &js_ast.Module{Body: []js_ast.Stmt{
		exprStmt(js_ast.Expr{Data: &js_ast.EAssign{
			TargetExpr: exprPtr(dot(ident("module"), "exports")),
			Value:      js_ast.Expr{Data: &js_ast.ENumber{Value: 1}},
		}}),
	}}

	c := newCollect(map[js_ast.Ref]bool{}, 0)
	c.run(module)

	assert.True(t, c.HasCJSExports)
}

func TestCollectExportsDotAssignmentStaysStatic(t *testing.T) {
	// exports.foo = 1
	module := &js_ast.Module{Body: []js_ast.Stmt{
		exprStmt(js_ast.Expr{Data: &js_ast.EAssign{
			TargetExpr: exprPtr(dot(ident("exports"), "foo")),
			Value:      js_ast.Expr{Data: &js_ast.ENumber{Value: 1}},
		}}),
	}}

	c := newCollect(map[js_ast.Ref]bool{}, 0)
	c.run(module)

	assert.True(t, c.HasCJSExports)
	assert.True(t, c.StaticCJSExports)
}

func TestCollectFreeExportsAssignmentSetsShouldWrap(t *testing.T) {
	// exports = {}
	module := &js_ast.Module{Body: []js_ast.Stmt{
		exprStmt(js_ast.Expr{Data: &js_ast.EAssign{
			TargetExpr: exprPtr(ident("exports")),
			Value:      js_ast.Expr{Data: &js_ast.EObject{}},
		}}),
	}}

	c := newCollect(map[js_ast.Ref]bool{}, 0)
	c.run(module)

	assert.True(t, c.ShouldWrap)
}

func TestCollectDynamicImportThen(t *testing.T) {
	// import("bar").then(ns => ns.baz)
	cb := js_ast.Expr{Data: &js_ast.EArrow{
		Params: []js_ast.Binding{{Data: &js_ast.BIdentifier{Ref: js_ast.Ref{Name: "ns"}}}},
		Body: []js_ast.Stmt{exprStmt(dot(ident("ns"), "baz"))},
	}}
	importCall := call(js_ast.Expr{Data: &js_ast.EIdentifier{Ref: js_ast.Ref{Name: "import"}}}, str("bar"))
	module := &js_ast.Module{Body: []js_ast.Stmt{
		exprStmt(call(dot(importCall, "then"), cb)),
	}}

	c := newCollect(map[js_ast.Ref]bool{}, 0)
	c.run(module)

	nsRef := js_ast.Ref{Name: "ns"}
	if assert.Contains(t, c.Imports, nsRef) {
		rec := c.Imports[nsRef]
		assert.Equal(t, "bar", rec.Source)
		assert.True(t, rec.IsAsync)
	}
}
