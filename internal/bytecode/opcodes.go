// Package bytecode defines the fixed-width instruction encoding, the
// constant pool, descriptor conventions and the on-disk artifact format
// produced by the Tide frontend.
package bytecode

// Opcode is the single-byte operation selector of an instruction.
type Opcode byte

const (
	// Control
	OP_HALT          Opcode = iota // stop the engine
	OP_JMP                         // pc += Sx (24-bit signed)
	OP_JMP_IF_FALSE                // if !R(A) { pc += Bx }
	OP_JMP_IF_TRUE                 // if R(A)  { pc += Bx }

	// Load / move. Immediates never touch the constant pool.
	OP_MOVE       // R(A) = R(B)
	OP_LOAD_CONST // R(A) = K(Bx)
	OP_LOAD_NULL  // R(A) = null
	OP_LOAD_BOOL  // R(A) = bool(B)
	OP_LOAD_INT16 // R(A) = int(Bx)
	OP_LOAD_F16   // R(A) = float(Bx / 256), fixed-point immediate
	OP_LOAD_CHAR  // R(A) = char(B)

	// Typed arithmetic. No implicit promotion: one opcode per type.
	OP_ADD_INT // R(A) = R(B) + R(C)
	OP_SUB_INT
	OP_MUL_INT
	OP_DIV_INT
	OP_MOD_INT
	OP_NEG_INT // R(A) = -R(B)
	OP_ADD_FLOAT
	OP_SUB_FLOAT
	OP_MUL_FLOAT
	OP_DIV_FLOAT
	OP_NEG_FLOAT
	OP_ADD_DOUBLE
	OP_SUB_DOUBLE
	OP_MUL_DOUBLE
	OP_DIV_DOUBLE
	OP_NEG_DOUBLE
	OP_CONCAT_STR // R(A) = R(B) ++ R(C)

	// Boolean
	OP_NOT // R(A) = !R(B)
	OP_AND // R(A) = R(B) && R(C)
	OP_OR  // R(A) = R(B) || R(C)

	// Typed comparisons. Strings order lexicographically, bools order
	// false before true, chars by code point.
	OP_EQ_INT
	OP_NE_INT
	OP_LT_INT
	OP_LE_INT
	OP_GT_INT
	OP_GE_INT
	OP_EQ_FLOAT
	OP_NE_FLOAT
	OP_LT_FLOAT
	OP_LE_FLOAT
	OP_GT_FLOAT
	OP_GE_FLOAT
	OP_EQ_DOUBLE
	OP_NE_DOUBLE
	OP_LT_DOUBLE
	OP_LE_DOUBLE
	OP_GT_DOUBLE
	OP_GE_DOUBLE
	OP_EQ_STR
	OP_NE_STR
	OP_LT_STR
	OP_LE_STR
	OP_GT_STR
	OP_GE_STR
	OP_EQ_CHAR
	OP_NE_CHAR
	OP_LT_CHAR
	OP_LE_CHAR
	OP_GT_CHAR
	OP_GE_CHAR
	OP_EQ_BOOL
	OP_NE_BOOL
	OP_LT_BOOL
	OP_LE_BOOL
	OP_GT_BOOL
	OP_GE_BOOL

	// Conversions. Narrowing truncates toward zero; parse failures are
	// ConversionError, never a default value.
	OP_INT_TO_FLOAT
	OP_INT_TO_DOUBLE
	OP_FLOAT_TO_INT
	OP_FLOAT_TO_DOUBLE
	OP_DOUBLE_TO_INT
	OP_DOUBLE_TO_FLOAT
	OP_INT_TO_STR
	OP_FLOAT_TO_STR
	OP_DOUBLE_TO_STR
	OP_CHAR_TO_STR
	OP_STR_TO_INT
	OP_STR_TO_FLOAT
	OP_STR_TO_DOUBLE
	OP_ENUM_CHECK_INT // validate R(A) against enum descriptor K(Bx)
	OP_ENUM_CHECK_STR
	OP_TO_JSON // R(A) = json text of R(B)

	// Arrays
	OP_NEW_ARRAY // R(A) = []
	OP_ARR_GET   // R(A) = R(B)[R(C)]
	OP_ARR_SET   // R(A)[R(B)] = R(C)
	OP_ARR_PUSH  // append R(B) to R(A)
	OP_ARR_LEN   // R(A) = len(R(B))
	OP_ARR_CLEAR

	// String-keyed map. Get on a missing key yields null and never
	// inserts: engine-level contract, diverges from some compiled hosts.
	OP_NEW_SMAP
	OP_SMAP_GET // R(A) = R(B)[R(C)] or null
	OP_SMAP_SET // R(A)[R(B)] = R(C)
	OP_SMAP_HAS
	OP_SMAP_DEL
	OP_SMAP_SIZE
	OP_SMAP_CLEAR
	OP_SMAP_KEYS // R(A) = keys of R(B) as array
	OP_SMAP_VALS

	// String-keyed set
	OP_NEW_SSET
	OP_SSET_ADD // add R(B) to R(A)
	OP_SSET_HAS // R(A) = R(B) has R(C)
	OP_SSET_DEL
	OP_SSET_SIZE
	OP_SSET_CLEAR
	OP_SSET_VALS

	// Integer-keyed map
	OP_NEW_IMAP
	OP_IMAP_GET
	OP_IMAP_SET
	OP_IMAP_HAS
	OP_IMAP_DEL
	OP_IMAP_SIZE
	OP_IMAP_CLEAR
	OP_IMAP_KEYS
	OP_IMAP_VALS

	// Integer-keyed set
	OP_NEW_ISET
	OP_ISET_ADD
	OP_ISET_HAS
	OP_ISET_DEL
	OP_ISET_SIZE
	OP_ISET_CLEAR
	OP_ISET_VALS

	// Objects
	OP_NEW_OBJECT // R(A) = new object of class descriptor K(Bx)
	OP_GET_FIELD  // R(A) = R(B).field[C]
	OP_SET_FIELD  // R(A).field[B] = R(C)

	// Closures. CAPTURE copies the current value of a register into the
	// closure's capture list; captures are frozen at creation.
	OP_NEW_CLOSURE  // R(A) = closure of function descriptor K(Bx)
	OP_CAPTURE      // append copy of R(B) to closure R(A)
	OP_CALL_CLOSURE // call closure R(B); args at R(A)..; result to R(A)

	// Iteration
	OP_ITER_INIT  // R(A) = iterator over R(B)
	OP_ITER_NEXT  // R(A) = advance iterator R(B), bool
	OP_ITER_VALUE // R(A) = current value of iterator R(B)
	OP_ITER_KEY   // R(A) = current key of iterator R(B)

	// Calls, externs, globals
	OP_CALL        // call function descriptor K(Bx); args at R(A)..; result to R(A)
	OP_RETURN      // return R(A)
	OP_RETURN_VOID // return null
	OP_EXTERN_CALL // call extern descriptor K(Bx); args at R(A)..; result to R(A)
	OP_GLOBAL_GET  // R(A) = G(Bx)
	OP_GLOBAL_SET  // G(Bx) = R(A)

	opcodeCount // sentinel, keep last
)

var opcodeNames = map[Opcode]string{
	OP_HALT:         "HALT",
	OP_JMP:          "JMP",
	OP_JMP_IF_FALSE: "JMP_IF_FALSE",
	OP_JMP_IF_TRUE:  "JMP_IF_TRUE",

	OP_MOVE:       "MOVE",
	OP_LOAD_CONST: "LOAD_CONST",
	OP_LOAD_NULL:  "LOAD_NULL",
	OP_LOAD_BOOL:  "LOAD_BOOL",
	OP_LOAD_INT16: "LOAD_INT16",
	OP_LOAD_F16:   "LOAD_F16",
	OP_LOAD_CHAR:  "LOAD_CHAR",

	OP_ADD_INT:    "ADD_INT",
	OP_SUB_INT:    "SUB_INT",
	OP_MUL_INT:    "MUL_INT",
	OP_DIV_INT:    "DIV_INT",
	OP_MOD_INT:    "MOD_INT",
	OP_NEG_INT:    "NEG_INT",
	OP_ADD_FLOAT:  "ADD_FLOAT",
	OP_SUB_FLOAT:  "SUB_FLOAT",
	OP_MUL_FLOAT:  "MUL_FLOAT",
	OP_DIV_FLOAT:  "DIV_FLOAT",
	OP_NEG_FLOAT:  "NEG_FLOAT",
	OP_ADD_DOUBLE: "ADD_DOUBLE",
	OP_SUB_DOUBLE: "SUB_DOUBLE",
	OP_MUL_DOUBLE: "MUL_DOUBLE",
	OP_DIV_DOUBLE: "DIV_DOUBLE",
	OP_NEG_DOUBLE: "NEG_DOUBLE",
	OP_CONCAT_STR: "CONCAT_STR",

	OP_NOT: "NOT",
	OP_AND: "AND",
	OP_OR:  "OR",

	OP_EQ_INT:    "EQ_INT",
	OP_NE_INT:    "NE_INT",
	OP_LT_INT:    "LT_INT",
	OP_LE_INT:    "LE_INT",
	OP_GT_INT:    "GT_INT",
	OP_GE_INT:    "GE_INT",
	OP_EQ_FLOAT:  "EQ_FLOAT",
	OP_NE_FLOAT:  "NE_FLOAT",
	OP_LT_FLOAT:  "LT_FLOAT",
	OP_LE_FLOAT:  "LE_FLOAT",
	OP_GT_FLOAT:  "GT_FLOAT",
	OP_GE_FLOAT:  "GE_FLOAT",
	OP_EQ_DOUBLE: "EQ_DOUBLE",
	OP_NE_DOUBLE: "NE_DOUBLE",
	OP_LT_DOUBLE: "LT_DOUBLE",
	OP_LE_DOUBLE: "LE_DOUBLE",
	OP_GT_DOUBLE: "GT_DOUBLE",
	OP_GE_DOUBLE: "GE_DOUBLE",
	OP_EQ_STR:    "EQ_STR",
	OP_NE_STR:    "NE_STR",
	OP_LT_STR:    "LT_STR",
	OP_LE_STR:    "LE_STR",
	OP_GT_STR:    "GT_STR",
	OP_GE_STR:    "GE_STR",
	OP_EQ_CHAR:   "EQ_CHAR",
	OP_NE_CHAR:   "NE_CHAR",
	OP_LT_CHAR:   "LT_CHAR",
	OP_LE_CHAR:   "LE_CHAR",
	OP_GT_CHAR:   "GT_CHAR",
	OP_GE_CHAR:   "GE_CHAR",
	OP_EQ_BOOL:   "EQ_BOOL",
	OP_NE_BOOL:   "NE_BOOL",
	OP_LT_BOOL:   "LT_BOOL",
	OP_LE_BOOL:   "LE_BOOL",
	OP_GT_BOOL:   "GT_BOOL",
	OP_GE_BOOL:   "GE_BOOL",

	OP_INT_TO_FLOAT:    "INT_TO_FLOAT",
	OP_INT_TO_DOUBLE:   "INT_TO_DOUBLE",
	OP_FLOAT_TO_INT:    "FLOAT_TO_INT",
	OP_FLOAT_TO_DOUBLE: "FLOAT_TO_DOUBLE",
	OP_DOUBLE_TO_INT:   "DOUBLE_TO_INT",
	OP_DOUBLE_TO_FLOAT: "DOUBLE_TO_FLOAT",
	OP_INT_TO_STR:      "INT_TO_STR",
	OP_FLOAT_TO_STR:    "FLOAT_TO_STR",
	OP_DOUBLE_TO_STR:   "DOUBLE_TO_STR",
	OP_CHAR_TO_STR:     "CHAR_TO_STR",
	OP_STR_TO_INT:      "STR_TO_INT",
	OP_STR_TO_FLOAT:    "STR_TO_FLOAT",
	OP_STR_TO_DOUBLE:   "STR_TO_DOUBLE",
	OP_ENUM_CHECK_INT:  "ENUM_CHECK_INT",
	OP_ENUM_CHECK_STR:  "ENUM_CHECK_STR",
	OP_TO_JSON:         "TO_JSON",

	OP_NEW_ARRAY: "NEW_ARRAY",
	OP_ARR_GET:   "ARR_GET",
	OP_ARR_SET:   "ARR_SET",
	OP_ARR_PUSH:  "ARR_PUSH",
	OP_ARR_LEN:   "ARR_LEN",
	OP_ARR_CLEAR: "ARR_CLEAR",

	OP_NEW_SMAP:   "NEW_SMAP",
	OP_SMAP_GET:   "SMAP_GET",
	OP_SMAP_SET:   "SMAP_SET",
	OP_SMAP_HAS:   "SMAP_HAS",
	OP_SMAP_DEL:   "SMAP_DEL",
	OP_SMAP_SIZE:  "SMAP_SIZE",
	OP_SMAP_CLEAR: "SMAP_CLEAR",
	OP_SMAP_KEYS:  "SMAP_KEYS",
	OP_SMAP_VALS:  "SMAP_VALS",

	OP_NEW_SSET:   "NEW_SSET",
	OP_SSET_ADD:   "SSET_ADD",
	OP_SSET_HAS:   "SSET_HAS",
	OP_SSET_DEL:   "SSET_DEL",
	OP_SSET_SIZE:  "SSET_SIZE",
	OP_SSET_CLEAR: "SSET_CLEAR",
	OP_SSET_VALS:  "SSET_VALS",

	OP_NEW_IMAP:   "NEW_IMAP",
	OP_IMAP_GET:   "IMAP_GET",
	OP_IMAP_SET:   "IMAP_SET",
	OP_IMAP_HAS:   "IMAP_HAS",
	OP_IMAP_DEL:   "IMAP_DEL",
	OP_IMAP_SIZE:  "IMAP_SIZE",
	OP_IMAP_CLEAR: "IMAP_CLEAR",
	OP_IMAP_KEYS:  "IMAP_KEYS",
	OP_IMAP_VALS:  "IMAP_VALS",

	OP_NEW_ISET:   "NEW_ISET",
	OP_ISET_ADD:   "ISET_ADD",
	OP_ISET_HAS:   "ISET_HAS",
	OP_ISET_DEL:   "ISET_DEL",
	OP_ISET_SIZE:  "ISET_SIZE",
	OP_ISET_CLEAR: "ISET_CLEAR",
	OP_ISET_VALS:  "ISET_VALS",

	OP_NEW_OBJECT: "NEW_OBJECT",
	OP_GET_FIELD:  "GET_FIELD",
	OP_SET_FIELD:  "SET_FIELD",

	OP_NEW_CLOSURE:  "NEW_CLOSURE",
	OP_CAPTURE:      "CAPTURE",
	OP_CALL_CLOSURE: "CALL_CLOSURE",

	OP_ITER_INIT:  "ITER_INIT",
	OP_ITER_NEXT:  "ITER_NEXT",
	OP_ITER_VALUE: "ITER_VALUE",
	OP_ITER_KEY:   "ITER_KEY",

	OP_CALL:        "CALL",
	OP_RETURN:      "RETURN",
	OP_RETURN_VOID: "RETURN_VOID",
	OP_EXTERN_CALL: "EXTERN_CALL",
	OP_GLOBAL_GET:  "GLOBAL_GET",
	OP_GLOBAL_SET:  "GLOBAL_SET",
}

func (op Opcode) String() string {
	if n, ok := opcodeNames[op]; ok {
		return n
	}
	return "UNKNOWN"
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	return op < opcodeCount
}
