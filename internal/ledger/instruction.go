package ledger

import (
	"encoding/binary"
)

// Instruction wire format. A request is one opcode byte followed by a
// fixed-field payload; the uri on IssueToken is the only variable-length
// field and carries a u16 little-endian length prefix.
//
//	create:    0x00 | source[32] | target[32]
//	reinforce: 0x01 | pathway[32] | outcome[1]
//	issue:     0x02 | pathway[32] | mint[32] | owner[32] | urilen[2] | uri
//
// Anything else — unknown opcode, short payload, trailing bytes, bad
// outcome byte — decodes to an invalid-instruction error.

// Opcode identifies a ledger operation on the wire.
type Opcode uint8

const (
	OpCreatePathway Opcode = iota
	OpReinforcePathway
	OpIssueToken
)

// Instruction is a decoded ledger request.
type Instruction interface {
	Opcode() Opcode
}

// CreatePathway requests a new pathway from SourceAgent to TargetAgent.
type CreatePathway struct {
	SourceAgent ID
	TargetAgent ID
}

func (CreatePathway) Opcode() Opcode { return OpCreatePathway }

// ReinforcePathway applies an outcome to an existing pathway.
type ReinforcePathway struct {
	PathwayID ID
	Outcome   Outcome
}

func (ReinforcePathway) Opcode() Opcode { return OpReinforcePathway }

// IssueToken requests a token record referencing an existing pathway.
type IssueToken struct {
	PathwayID ID
	Mint      ID
	Owner     ID
	URI       string
}

func (IssueToken) Opcode() Opcode { return OpIssueToken }

// DecodeInstruction parses a raw request payload into a typed instruction.
func DecodeInstruction(data []byte) (Instruction, error) {
	if len(data) == 0 {
		return nil, newError(CodeInvalidInstruction, "empty payload")
	}

	op := Opcode(data[0])
	body := data[1:]

	switch op {
	case OpCreatePathway:
		if len(body) != 2*IDSize {
			return nil, newError(CodeInvalidInstruction, "create: payload is %d bytes, want %d", len(body), 2*IDSize)
		}
		var in CreatePathway
		copy(in.SourceAgent[:], body[:IDSize])
		copy(in.TargetAgent[:], body[IDSize:])
		return in, nil

	case OpReinforcePathway:
		if len(body) != IDSize+1 {
			return nil, newError(CodeInvalidInstruction, "reinforce: payload is %d bytes, want %d", len(body), IDSize+1)
		}
		var in ReinforcePathway
		copy(in.PathwayID[:], body[:IDSize])
		switch body[IDSize] {
		case byte(OutcomeSuccess):
			in.Outcome = OutcomeSuccess
		case byte(OutcomeFailure):
			in.Outcome = OutcomeFailure
		default:
			return nil, newError(CodeInvalidInstruction, "reinforce: unknown outcome byte %d", body[IDSize])
		}
		return in, nil

	case OpIssueToken:
		const fixed = 3*IDSize + 2
		if len(body) < fixed {
			return nil, newError(CodeInvalidInstruction, "issue: payload is %d bytes, want at least %d", len(body), fixed)
		}
		var in IssueToken
		copy(in.PathwayID[:], body[:IDSize])
		copy(in.Mint[:], body[IDSize:2*IDSize])
		copy(in.Owner[:], body[2*IDSize:3*IDSize])
		uriLen := int(binary.LittleEndian.Uint16(body[3*IDSize:]))
		if len(body) != fixed+uriLen {
			return nil, newError(CodeInvalidInstruction, "issue: uri length %d does not match payload", uriLen)
		}
		in.URI = string(body[fixed:])
		return in, nil

	default:
		return nil, newError(CodeInvalidInstruction, "unknown opcode %d", data[0])
	}
}

// EncodeInstruction serializes a typed instruction to the wire format.
// It returns nil for an unknown instruction type or a uri over
// maxURIChars, which could not round-trip through the u16 length prefix
// anyway.
func EncodeInstruction(in Instruction) []byte {
	switch in := in.(type) {
	case CreatePathway:
		buf := make([]byte, 1+2*IDSize)
		buf[0] = byte(OpCreatePathway)
		copy(buf[1:], in.SourceAgent[:])
		copy(buf[1+IDSize:], in.TargetAgent[:])
		return buf

	case ReinforcePathway:
		buf := make([]byte, 1+IDSize+1)
		buf[0] = byte(OpReinforcePathway)
		copy(buf[1:], in.PathwayID[:])
		buf[1+IDSize] = byte(in.Outcome)
		return buf

	case IssueToken:
		if len(in.URI) > maxURIChars {
			return nil
		}
		buf := make([]byte, 1+3*IDSize+2+len(in.URI))
		buf[0] = byte(OpIssueToken)
		copy(buf[1:], in.PathwayID[:])
		copy(buf[1+IDSize:], in.Mint[:])
		copy(buf[1+2*IDSize:], in.Owner[:])
		binary.LittleEndian.PutUint16(buf[1+3*IDSize:], uint16(len(in.URI)))
		copy(buf[1+3*IDSize+2:], in.URI)
		return buf

	default:
		return nil
	}
}
