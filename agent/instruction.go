package agent

import "github.com/hupe1980/researchmesh/prompts"

// Instruction produces a system prompt from template variables. It is either
// a text/template string rendered with prompts.Render or a function.
type Instruction struct {
	text string
	fn   func(vars map[string]any) (string, error)
}

// NewInstructionFromText creates an Instruction from a template string.
func NewInstructionFromText(tmpl string) Instruction { return Instruction{text: tmpl} }

// NewInstructionFromFunc creates an Instruction backed by a function.
func NewInstructionFromFunc(fn func(vars map[string]any) (string, error)) Instruction {
	return Instruction{fn: fn}
}

// IsZero reports whether the instruction is unset.
func (i Instruction) IsZero() bool { return i.text == "" && i.fn == nil }

// IsStatic returns true if the instruction is backed by a template string.
func (i Instruction) IsStatic() bool { return i.fn == nil }

// Resolve renders the instruction.
func (i Instruction) Resolve(vars map[string]any) (string, error) {
	if i.fn != nil {
		return i.fn(vars)
	}

	return prompts.Render(i.text, vars)
}

func (i Instruction) or(tmpl string) Instruction {
	if i.IsZero() {
		return NewInstructionFromText(tmpl)
	}

	return i
}
