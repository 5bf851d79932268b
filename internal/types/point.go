package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Controller is one physical Modbus TCP device in the catalog.
// For import reconciliation the identity is (Host, Port), not the ID:
// two documents describing the same physical device must collide even
// when their names differ.
type Controller struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Timeout   int       `json:"timeout"` // seconds
	Online    bool      `json:"online"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Point is one addressable data item on a controller.
// Natural key: (ControllerID, UnitID, Address, Kind).
type Point struct {
	ID           uuid.UUID    `json:"id"`
	ControllerID uuid.UUID    `json:"controller_id"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	Kind         PointKind    `json:"kind"`
	Encoding     DataEncoding `json:"encoding"`
	Address      int          `json:"address"`
	Length       int          `json:"len"`
	UnitID       int          `json:"unit_id"`
	Formula      string       `json:"formula,omitempty"`
	Unit         string       `json:"unit,omitempty"`
	MinValue     *float64     `json:"min_value,omitempty"`
	MaxValue     *float64     `json:"max_value,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type PointKind string

const (
	PointKindCoil            PointKind = "coil"
	PointKindDiscreteInput   PointKind = "discrete_input"
	PointKindHoldingRegister PointKind = "holding_register"
	PointKindInputRegister   PointKind = "input_register"
)

// PointKinds lists every valid kind, in function-code order.
var PointKinds = []PointKind{
	PointKindCoil,
	PointKindDiscreteInput,
	PointKindHoldingRegister,
	PointKindInputRegister,
}

func ParsePointKind(s string) (PointKind, error) {
	for _, k := range PointKinds {
		if s == string(k) {
			return k, nil
		}
	}
	return "", fmt.Errorf("invalid point kind %q", s)
}

// Writable reports whether the kind accepts writes on the wire.
// Discrete inputs and input registers are read-only by protocol.
func (k PointKind) Writable() bool {
	return k == PointKindCoil || k == PointKindHoldingRegister
}

// Bit reports whether the kind addresses single bits rather than registers.
func (k PointKind) Bit() bool {
	return k == PointKindCoil || k == PointKindDiscreteInput
}

type DataEncoding string

const (
	EncodingBool    DataEncoding = "bool"
	EncodingInt16   DataEncoding = "int16"
	EncodingUint16  DataEncoding = "uint16"
	EncodingInt32   DataEncoding = "int32"
	EncodingUint32  DataEncoding = "uint32"
	EncodingFloat32 DataEncoding = "float32"
	EncodingFloat64 DataEncoding = "float64"
	EncodingString  DataEncoding = "string"
)

var DataEncodings = []DataEncoding{
	EncodingBool,
	EncodingInt16,
	EncodingUint16,
	EncodingInt32,
	EncodingUint32,
	EncodingFloat32,
	EncodingFloat64,
	EncodingString,
}

func ParseDataEncoding(s string) (DataEncoding, error) {
	for _, e := range DataEncodings {
		if s == string(e) {
			return e, nil
		}
	}
	return "", fmt.Errorf("invalid data encoding %q", s)
}

// ImportMode selects the conflict policy when an imported document
// collides with catalog entries.
type ImportMode string

const (
	ImportSkipController      ImportMode = "skip_controller"
	ImportOverwriteController ImportMode = "overwrite_controller"
	ImportSkipDuplicatePoints ImportMode = "skip_duplicate_points"
	ImportOverwriteDuplicates ImportMode = "overwrite_duplicate_points"
)

func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(s) {
	case ImportSkipController, ImportOverwriteController,
		ImportSkipDuplicatePoints, ImportOverwriteDuplicates:
		return ImportMode(s), nil
	}
	return "", fmt.Errorf("invalid import mode %q", s)
}
