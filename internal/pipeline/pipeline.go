// Package pipeline runs a sequence of Processors over a shared Context,
// mirroring the teacher's generic staged-processor idiom. It defines no
// concrete stages; no lex, parse or check Processor exists in this
// repository.
package pipeline

import (
	"github.com/tomo-lang/tomo/internal/ast"
	"github.com/tomo-lang/tomo/internal/diagnostics"
	"github.com/tomo-lang/tomo/internal/span"
)

// Context threads per-file state between stages. Each Processor reads what
// earlier stages produced and fills in its own field(s).
type Context struct {
	File    *span.File
	Tokens  []Token // for a lex stage to fill
	Program *ast.Program
	Sink    diagnostics.Sink
}

// Token is the pipeline's view of a lexed token, held as `any` so this
// package does not depend on internal/token.
type Token = any

// Processor is one pipeline stage.
type Processor interface {
	Process(ctx *Context) *Context
}

// Pipeline is a sequence of stages run in order.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes every stage, feeding each one the previous stage's Context.
// Stages are expected to record failures on ctx.Sink rather than stop the
// pipeline, so a caller can decide whether to keep going (e.g. to collect
// every diagnostic in one pass) or bail after the first stage that failed.
func (p *Pipeline) Run(initialCtx *Context) *Context {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
	}
	return ctx
}
