package pointcfg

import (
	"fmt"

	"github.com/KevinKickass/OpenPointHub/internal/types"
)

// Modbus Function Codes
const (
	FuncCodeReadCoils              = 1
	FuncCodeReadDiscreteInputs     = 2
	FuncCodeReadHoldingRegisters   = 3
	FuncCodeReadInputRegisters     = 4
	FuncCodeWriteSingleCoil        = 5
	FuncCodeWriteSingleRegister    = 6
	FuncCodeWriteMultipleCoils     = 15
	FuncCodeWriteMultipleRegisters = 16
)

type accessClass string

const (
	accessRead  accessClass = "read"
	accessWrite accessClass = "write"
)

// kindByFunctionCode resolves a wire function code to the point kind it
// addresses and whether the code reads or writes. Write codes map onto the
// writable kinds only.
var kindByFunctionCode = map[int]struct {
	kind   types.PointKind
	access accessClass
}{
	FuncCodeReadCoils:              {types.PointKindCoil, accessRead},
	FuncCodeReadDiscreteInputs:     {types.PointKindDiscreteInput, accessRead},
	FuncCodeReadHoldingRegisters:   {types.PointKindHoldingRegister, accessRead},
	FuncCodeReadInputRegisters:     {types.PointKindInputRegister, accessRead},
	FuncCodeWriteSingleCoil:        {types.PointKindCoil, accessWrite},
	FuncCodeWriteSingleRegister:    {types.PointKindHoldingRegister, accessWrite},
	FuncCodeWriteMultipleCoils:     {types.PointKindCoil, accessWrite},
	FuncCodeWriteMultipleRegisters: {types.PointKindHoldingRegister, accessWrite},
}

var readCodeByKind = map[types.PointKind]int{
	types.PointKindCoil:            FuncCodeReadCoils,
	types.PointKindDiscreteInput:   FuncCodeReadDiscreteInputs,
	types.PointKindHoldingRegister: FuncCodeReadHoldingRegisters,
	types.PointKindInputRegister:   FuncCodeReadInputRegisters,
}

// Read-only kinds have no entry here.
var writeCodeByKind = map[types.PointKind]int{
	types.PointKindCoil:            FuncCodeWriteSingleCoil,
	types.PointKindHoldingRegister: FuncCodeWriteSingleRegister,
}

// KindForFunctionCode maps a wire function code back to the point kind it
// addresses. Unknown codes are a processing error carrying the tag of the
// offending document entry.
func KindForFunctionCode(code int, tag string) (types.PointKind, error) {
	entry, ok := kindByFunctionCode[code]
	if !ok {
		return "", &ConfigProcessingError{Tag: tag, Reason: fmt.Sprintf("unsupported function code %d", code)}
	}
	return entry.kind, nil
}

// ReadFunctionCode returns the read opcode for a kind.
func ReadFunctionCode(kind types.PointKind) int {
	return readCodeByKind[kind]
}

// WriteFunctionCode returns the write opcode for a kind, false for the
// read-only kinds.
func WriteFunctionCode(kind types.PointKind) (int, bool) {
	code, ok := writeCodeByKind[kind]
	return code, ok
}

func init() {
	// Mapping tables must stay closed over the kind enum.
	for _, kind := range types.PointKinds {
		code, ok := readCodeByKind[kind]
		if !ok {
			panic(fmt.Sprintf("pointcfg: kind %s has no read function code", kind))
		}
		if kindByFunctionCode[code].kind != kind {
			panic(fmt.Sprintf("pointcfg: read code %d does not map back to %s", code, kind))
		}
		if code, ok := writeCodeByKind[kind]; ok != kind.Writable() || (ok && kindByFunctionCode[code].kind != kind) {
			panic(fmt.Sprintf("pointcfg: write code mapping inconsistent for %s", kind))
		}
	}
}
