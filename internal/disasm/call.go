package disasm

// CallInfo describes a decoded call instruction.
type CallInfo struct {
	Target   uint64 // absolute target address (BL only)
	Indirect bool   // true for BLR (target unresolvable statically)
	Reg      int    // register number for BLR
}

// DecodeCall attempts to decode a call instruction at the given PC.
// Returns nil if the instruction is not BL or BLR. The hypothetical
// return address of any ARM64 call is pc+4.
func DecodeCall(raw uint32, pc uint64) *CallInfo {
	// BL: 1 00101 imm26
	if raw&0xFC000000 == 0x94000000 {
		imm26 := raw & 0x03FFFFFF
		offset := signExtend(imm26, 26) * 4
		return &CallInfo{Target: uint64(int64(pc) + int64(offset))}
	}

	// BLR: 1101011 0 0 01 11111 0000 0 0 Rn 00000
	if raw&0xFFFFFC1F == 0xD63F0000 {
		return &CallInfo{Indirect: true, Reg: int((raw >> 5) & 0x1F)}
	}

	return nil
}
