// Package logger is a trimmed copy of esbuild's diagnostic layer. It exists
// so that internal/hoist can report the one user-observable diagnostic the
// scope-hoisting pass ever produces (an unsupported "export default"
// declaration kind) the same way the rest of the corpus reports problems:
// collected Msg values returned from a deferred Log, not a bare error
// string and not a panic.
package logger

import (
	"fmt"
	"sort"
	"sync"
)

// Loc is a 0-based byte offset into Source.Contents. It is opaque to this
// package; the scope-hoisting pass only ever threads Locs through from the
// AST it was handed, it never computes one itself.
type Loc struct {
	Start int32
}

type Range struct {
	Loc Loc
	Len int32
}

func (r Range) End() int32 {
	return r.Loc.Start + r.Len
}

// Source identifies the module being processed. The pass never reads
// Contents itself (tokenizing is the out-of-scope parser's job); it is
// carried here purely so a Msg can quote the offending snippet if a caller
// chooses to render one.
type Source struct {
	Contents   string
	PrettyPath string
	Index      uint32
}

type MsgKind uint8

const (
	Error MsgKind = iota
	Warning
)

func (kind MsgKind) String() string {
	switch kind {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		panic("Internal error")
	}
}

type MsgData struct {
	Text     string
	Location *MsgLocation
}

type MsgLocation struct {
	File   string
	Length int
	Start  int
}

type Msg struct {
	Data MsgData
	Kind MsgKind
}

func (msg Msg) String() string {
	if msg.Data.Location != nil {
		return fmt.Sprintf("%s: %s: %s", msg.Data.Location.File, msg.Kind, msg.Data.Text)
	}
	return fmt.Sprintf("%s: %s", msg.Kind, msg.Data.Text)
}

// Log mirrors esbuild's closure-based Log type: a small set of functions
// closing over shared state instead of a concrete struct with methods, the
// same trade esbuild makes. The zero value has nil functions and cannot be
// used; NewDeferLog returns a working Log.
type Log struct {
	AddMsg    func(Msg)
	HasErrors func() bool
	Done      func() []Msg
}

type sortableMsgs []Msg

func (a sortableMsgs) Len() int      { return len(a) }
func (a sortableMsgs) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a sortableMsgs) Less(i, j int) bool {
	return a[i].Data.Text < a[j].Data.Text
}

// NewDeferLog returns a Log that buffers every message until Done is called.
// The scope-hoisting pass runs to completion in a single call; there is no
// streaming consumer, so deferred collection (rather than an immediate
// callback) is the only mode this module needs.
func NewDeferLog() Log {
	var mutex sync.Mutex
	var msgs sortableMsgs
	var hasErrors bool

	return Log{
		AddMsg: func(msg Msg) {
			mutex.Lock()
			defer mutex.Unlock()
			if msg.Kind == Error {
				hasErrors = true
			}
			msgs = append(msgs, msg)
		},
		HasErrors: func() bool {
			mutex.Lock()
			defer mutex.Unlock()
			return hasErrors
		},
		Done: func() []Msg {
			mutex.Lock()
			defer mutex.Unlock()
			sort.Stable(msgs)
			return msgs
		},
	}
}

func rangeData(source *Source, r Range, text string) MsgData {
	data := MsgData{Text: text}
	if source != nil {
		data.Location = &MsgLocation{
			File:   source.PrettyPath,
			Start:  int(r.Loc.Start),
			Length: int(r.Len),
		}
	}
	return data
}

func (log Log) AddError(source *Source, loc Loc, text string) {
	log.AddMsg(Msg{Kind: Error, Data: rangeData(source, Range{Loc: loc}, text)})
}

func (log Log) AddWarning(source *Source, loc Loc, text string) {
	log.AddMsg(Msg{Kind: Warning, Data: rangeData(source, Range{Loc: loc}, text)})
}
