package bytecode

import (
	"fmt"
	"io"
	"strings"
)

// Disassemble writes a human-readable listing of the program to w, one
// instruction per line.
func Disassemble(w io.Writer, p *Program) {
	for pc := range p.Code {
		fmt.Fprintln(w, DisassembleAt(p, pc))
	}
}

// DisassembleAt renders the single instruction at pc.
func DisassembleAt(p *Program, pc int) string {
	ins := p.Code[pc]
	op := ins.Op()
	var operands string
	switch op {
	case OP_HALT, OP_RETURN_VOID:
		operands = ""
	case OP_JMP:
		operands = fmt.Sprintf("%+d", ins.Sx())
	case OP_JMP_IF_FALSE, OP_JMP_IF_TRUE:
		operands = fmt.Sprintf("r%d %+d", ins.A(), ins.Bx())
	case OP_LOAD_CONST, OP_NEW_OBJECT, OP_NEW_CLOSURE, OP_CALL, OP_EXTERN_CALL,
		OP_ENUM_CHECK_INT, OP_ENUM_CHECK_STR:
		operands = fmt.Sprintf("r%d k%d%s", ins.A(), ins.Bx(), constComment(p, int(ins.Bx())))
	case OP_GLOBAL_GET, OP_GLOBAL_SET:
		operands = fmt.Sprintf("r%d g%d", ins.A(), ins.Bx())
	case OP_LOAD_INT16, OP_LOAD_F16:
		operands = fmt.Sprintf("r%d %d", ins.A(), ins.Bx())
	case OP_LOAD_NULL, OP_NEW_ARRAY, OP_NEW_SMAP, OP_NEW_SSET, OP_NEW_IMAP,
		OP_NEW_ISET, OP_RETURN, OP_ARR_CLEAR, OP_SMAP_CLEAR, OP_SSET_CLEAR,
		OP_IMAP_CLEAR, OP_ISET_CLEAR:
		operands = fmt.Sprintf("r%d", ins.A())
	case OP_LOAD_BOOL, OP_LOAD_CHAR:
		operands = fmt.Sprintf("r%d %d", ins.A(), ins.B())
	case OP_GET_FIELD:
		operands = fmt.Sprintf("r%d r%d f%d", ins.A(), ins.B(), ins.C())
	case OP_SET_FIELD:
		operands = fmt.Sprintf("r%d f%d r%d", ins.A(), ins.B(), ins.C())
	default:
		// Remaining shapes are register triples or pairs; render all
		// three bytes, trailing zeros included.
		operands = fmt.Sprintf("r%d r%d r%d", ins.A(), ins.B(), ins.C())
	}
	return strings.TrimRight(fmt.Sprintf("%04d  %-16s %s", pc, op, operands), " ")
}

func constComment(p *Program, idx int) string {
	if idx < 0 || idx >= len(p.Consts) {
		return "  ; <bad index>"
	}
	return "  ; " + p.Consts[idx].String()
}
