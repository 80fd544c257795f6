package bytecode

// Instruction is exactly four bytes: one opcode byte plus three operand
// bytes. The operand bytes are reinterpreted per opcode in one of three
// layouts:
//
//	ABC: [op][A][B][C]        three 8-bit register/index operands
//	ABx: [op][A][Bx lo][Bx hi] A plus a signed 16-bit immediate in the
//	                           last two bytes
//	Sx:  [op][Sx 24-bit]       a signed 24-bit immediate across all three
//	                           operand bytes (two's complement)
//
// The encoding is fixed-width and opcode-independent; no opcode ever
// occupies more than one slot.
type Instruction uint32

// ABC encodes a three-operand instruction.
func ABC(op Opcode, a, b, c uint8) Instruction {
	return Instruction(op) |
		Instruction(a)<<8 |
		Instruction(b)<<16 |
		Instruction(c)<<24
}

// ABx encodes one register operand plus a signed 16-bit immediate.
func ABx(op Opcode, a uint8, bx int16) Instruction {
	return Instruction(op) |
		Instruction(a)<<8 |
		Instruction(uint16(bx))<<16
}

// Sx encodes a signed 24-bit immediate. Values outside the 24-bit range
// are silently truncated by masking; the frontend guarantees range.
func Sx(op Opcode, sx int32) Instruction {
	return Instruction(op) | Instruction(uint32(sx)&0xFFFFFF)<<8
}

// Op extracts the opcode byte.
func (i Instruction) Op() Opcode {
	return Opcode(i & 0xFF)
}

// A extracts the first operand byte.
func (i Instruction) A() uint8 {
	return uint8(i >> 8)
}

// B extracts the second operand byte.
func (i Instruction) B() uint8 {
	return uint8(i >> 16)
}

// C extracts the third operand byte.
func (i Instruction) C() uint8 {
	return uint8(i >> 24)
}

// Bx extracts the signed 16-bit immediate packed into the last two bytes.
func (i Instruction) Bx() int16 {
	return int16(uint16(i >> 16))
}

// Sx extracts the signed 24-bit immediate, sign-extended to 32 bits.
func (i Instruction) Sx() int32 {
	raw := int32(uint32(i) >> 8)
	if raw&0x800000 != 0 {
		raw |= ^int32(0xFFFFFF)
	}
	return raw
}
