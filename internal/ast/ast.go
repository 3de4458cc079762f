// Package ast holds the handful of format-agnostic pieces esbuild normally
// shares between its JS and CSS front ends. This module only ever sees
// ECMAScript modules, so only the import-classification piece survives the
// trim (see DESIGN.md).
package ast

// ImportKind records how a source module was referenced. It is pure
// metadata carried on the entries of spec.md's `imports` table and of
// HoistResult's imported symbols, so a downstream linker can tell a static
// `import` from a `require()` from a dynamic `import()` without
// re-deriving it from the rewritten AST. The `non_static_requires` and
// `wrapped_requires` source sets and the hoisted bare imports carry no kind.
type ImportKind uint8

const (
	// import ... from 'x' / export ... from 'x' / export * from 'x'
	ImportStmt ImportKind = iota

	// const x = require('x')
	ImportRequire

	// import('x') / await import('x')
	ImportDynamic
)

func (kind ImportKind) String() string {
	switch kind {
	case ImportStmt:
		return "import-statement"
	case ImportRequire:
		return "require-call"
	case ImportDynamic:
		return "dynamic-import"
	default:
		panic("Internal error")
	}
}
