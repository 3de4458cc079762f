// Package js_ast defines the AST that internal/hoist operates on.
//
// The parser that produces this tree, the lexical-scope resolver that
// assigns every identifier's ScopeCtxt, and the printer that serializes the
// rewritten tree back to source text are all external collaborators (see
// spec.md §1) — this package only defines the shape they agree on.
//
// The node-kind idiom (Expr{Data E, Loc} / E interface{isExpr()}) mirrors
// esbuild's internal/js_ast, including the EDot (static member) vs EIndex
// (computed member) split. Ref is deliberately simpler than esbuild's
// SourceIndex/InnerIndex pair plus side SymbolMap: esbuild's indirection
// exists to let the same Ref survive being merged across many files during
// bundling, but this pass (spec.md §5) processes exactly one already
// lexically-resolved module per call with no cross-module symbol table, so
// Ref is spec.md §3's IdentId directly — a (name, lexical-scope context)
// pair.
package js_ast

import "github.com/bundlejs/scopehoist/internal/logger"

// ScopeCtxt is a lexical-scope mark assigned by the (out-of-scope) resolver.
// Two references with the same name but different ScopeCtxt values are
// distinct bindings. This is a flattened stand-in for SWC's SyntaxContext,
// which is really a chain of composed marks; nothing in this module's own
// logic needs chain membership, only equality against a caller-supplied
// GlobalMark or IgnoreMark (see Options in internal/hoist), so the chain
// structure itself is not modeled.
type ScopeCtxt uint32

// Ref identifies a binding by name and defining scope — spec.md §3's
// IdentId. The zero Ref (empty name, zero context) never matches a real
// binding and is used as "no identifier" in optional fields.
type Ref struct {
	Name string
	Ctxt ScopeCtxt
}

func (r Ref) IsValid() bool { return r.Name != "" }

// Module is the root of the tree handed to internal/hoist.
type Module struct {
	Body []Stmt
}

// ---- Expressions -----------------------------------------------------

type Expr struct {
	Data E
	Loc  logger.Loc
}

func (e Expr) IsNil() bool { return e.Data == nil }

// E is implemented by every expression node kind. It is never called; its
// only purpose is to encode a closed union in Go's type system, same as
// esbuild's E interface.
type E interface{ isExpr() }

func (*EIdentifier) isExpr() {}
func (*EThis) isExpr()       {}
func (*EDot) isExpr()        {}
func (*EIndex) isExpr()      {}
func (*ECall) isExpr()       {}
func (*EAwait) isExpr()      {}
func (*EUnary) isExpr()      {}
func (*ESeq) isExpr()        {}
func (*EObject) isExpr()     {}
func (*EArray) isExpr()      {}
func (*EAssign) isExpr()     {}
func (*EArrow) isExpr()      {}
func (*EFunction) isExpr()   {}
func (*EClass) isExpr()      {}
func (*EString) isExpr()     {}
func (*ENumber) isExpr()     {}
func (*ESpread) isExpr()     {}

// EIdentifier is a bare reference to a binding, e.g. "foo", "require",
// "module", "exports", "global", "undefined". The pseudo-keyword callee of
// a dynamic import expression ("import" in "import('x')") is represented
// this way too — SWC itself parses it as an identifier named "import" that
// can carry the ignore mark but is never looked up in decls (spec.md §4.1,
// "Require & dynamic import recognition").
type EIdentifier struct {
	Ref Ref
}

// EThis is a bare "this" reference.
type EThis struct{}

// EDot is a static member expression: "obj.name". A property access with a
// computed/non-literal key must not be represented as an EDot.
type EDot struct {
	Target  Expr
	Name    string
	NameLoc logger.Loc
}

// EIndex is a computed member expression: "obj[expr]". When expr is a
// string literal ("obj['name']"), internal/hoist's matchMemberExpr treats it
// as a static member access, the same as an EDot.
type EIndex struct {
	Target Expr
	Index  Expr
}

type ECall struct {
	Target Expr
	Args   []Expr
}

type EAwait struct {
	Value Expr
}

type UnaryOp uint8

const (
	UnOpTypeof UnaryOp = iota
	UnOpNot            // "!x" — used to protect discarded require() calls in sequences
)

type EUnary struct {
	Op    UnaryOp
	Value Expr
}

// ESeq is a comma expression: "a, b, c".
type ESeq struct {
	Exprs []Expr
}

type Property struct {
	Key          Expr
	Value        Expr
	WasShorthand bool
}

type EObject struct {
	Properties []Property
}

// EArray is an array literal. A destructuring assignment target such as
// "[exports] = foo()" is not an EArray; it is carried as a Binding in
// EAssign.TargetPattern.
type EArray struct {
	Items []Expr
}

// ESpread is "...expr", used inside EArray/ECall arg lists and EObject
// properties (the rest element of an assignment-target object pattern).
type ESpread struct {
	Value Expr
}

// EAssign is "target = value". Target is either a plain expression (the
// common case: "module.exports = x", "exports.foo = x", "exports = x") or a
// destructuring Binding used as an assignment target (e.g.
// "[exports] = x", "({exports} = x)") — mirroring SWC's PatOrExpr, which
// exists for exactly this ambiguity.
type EAssign struct {
	TargetExpr    *Expr
	TargetPattern *Binding
	Value         Expr
}

type EArrow struct {
	Params  []Binding
	Body    []Stmt
	IsAsync bool
}

type Fn struct {
	Name    *Ref
	Params  []Binding
	Body    []Stmt
	IsAsync bool
}

type EFunction struct {
	Fn *Fn
}

type ClassMember struct {
	Key      Expr
	Fn       *Fn
	IsStatic bool
}

type Class struct {
	Name       *Ref
	ExtendsNil Expr
	Members    []ClassMember
}

type EClass struct {
	Class *Class
}

type EString struct {
	Value string
}

type ENumber struct {
	Value float64
}

// ---- Bindings (patterns) ----------------------------------------------

type Binding struct {
	Data B
	Loc  logger.Loc
}

func (b Binding) IsNil() bool { return b.Data == nil }

type B interface{ isBinding() }

func (*BMissing) isBinding()  {}
func (*BIdentifier) isBinding() {}
func (*BObject) isBinding()   {}
func (*BArray) isBinding()    {}

// BMissing is an elided array element: "let [, x] = y".
type BMissing struct{}

type BIdentifier struct {
	Ref Ref
}

type PropertyBinding struct {
	Key               Expr
	Value             Binding
	DefaultValueOrNil Expr
	IsComputed        bool
	IsRest            bool
	WasShorthand      bool
}

type BObject struct {
	Properties []PropertyBinding
}

type ArrayBindingItem struct {
	Binding           Binding
	DefaultValueOrNil Expr
}

type BArray struct {
	Items     []ArrayBindingItem
	HasRest   bool
}

// ---- Statements ---------------------------------------------------------

type Stmt struct {
	Data S
	Loc  logger.Loc
}

type S interface{ isStmt() }

func (*SExpr) isStmt()               {}
func (*SReturn) isStmt()             {}
func (*SLocal) isStmt()              {}
func (*SFunction) isStmt()           {}
func (*SClass) isStmt()              {}
func (*SBlock) isStmt()              {}
func (*SImport) isStmt()             {}
func (*SExportNamed) isStmt()        {}
func (*SExportStar) isStmt()         {}
func (*SExportDefaultExpr) isStmt()  {}
func (*SExportDefaultDecl) isStmt()  {}
func (*SExportDecl) isStmt()         {}

type SExpr struct {
	Value Expr
}

type SReturn struct {
	ValueOrNil Expr
}

type LocalKind uint8

const (
	LocalVar LocalKind = iota
	LocalLet
	LocalConst
)

type Decl struct {
	Binding    Binding
	ValueOrNil Expr
}

type SLocal struct {
	Decls []Decl
	Kind  LocalKind
}

type SFunction struct {
	Fn *Fn
}

type SClass struct {
	Class *Class
}

// SBlock is an explicit nested block. Its presence (as opposed to a bare
// statement list) is what flips spec.md §4.1's in_top_level off for its
// children — "entering a nested block at module item granularity".
type SBlock struct {
	Stmts []Stmt
}

// ---- Module-level declarations -----------------------------------------

type ImportSpecifier struct {
	Local    Ref
	Imported string // "*" for namespace, "default" for default
}

type SImport struct {
	Source     string
	Specifiers []ImportSpecifier
}

// ExportSpecifier is one entry of "export {a as b}" or "export {a as b} from
// 'x'". When Source (on the owning SExportNamed) is nil, Orig identifies a
// real local binding; when Source is set, Orig.Name is just the external
// module's export name (Orig.Ctxt is unused, there is no local binding).
type ExportSpecifier struct {
	Orig     Ref
	Exported string
	Loc      logger.Loc
}

type SExportNamed struct {
	Specifiers []ExportSpecifier
	Source     *string
}

type SExportStar struct {
	Source string
	Loc    logger.Loc
}

type SExportDefaultExpr struct {
	Value Expr
}

// SExportDefaultDecl wraps an SFunction or SClass declaration (Fn.Name /
// Class.Name may be nil for "export default function() {}").
type SExportDefaultDecl struct {
	Decl S
}

// SExportDecl wraps an SLocal, SFunction, or SClass declaration.
type SExportDecl struct {
	Decl S
}
