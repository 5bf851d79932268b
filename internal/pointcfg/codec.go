package pointcfg

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/KevinKickass/OpenPointHub/internal/types"
	"github.com/expr-lang/expr"
	"go.uber.org/zap"
)

// Defaults applied to fields the dialects may omit.
const (
	defaultTimeout    = 10
	defaultLength     = 1
	defaultUnitID     = 1
	defaultRetries    = 3
	defaultPollPeriod = 1000
)

// IncomingController is a controller materialized from a document, about to
// be reconciled against the catalog. The store owns ids and timestamps.
type IncomingController struct {
	Name    string
	Host    string
	Port    int
	Timeout int
}

// IncomingPoint is a point materialized from a document.
type IncomingPoint struct {
	Name        string
	Description string
	Kind        types.PointKind
	Encoding    types.DataEncoding
	Address     int
	Length      int
	UnitID      int
	Formula     string
	Unit        string
	MinValue    *float64
	MaxValue    *float64
}

// PointFailure records a document entry that could not be mapped to a point.
// The reconciler folds these into point-level error results; they never
// abort the batch.
type PointFailure struct {
	Name string
	Err  error
}

// DecodedConfig is the dialect-neutral result of decoding one document.
type DecodedConfig struct {
	Controller IncomingController
	Points     []IncomingPoint
	Failures   []PointFailure
}

// TotalPoints counts every entry the document carried, mappable or not.
func (d *DecodedConfig) TotalPoints() int {
	return len(d.Points) + len(d.Failures)
}

// Gateway wire-type labels per data encoding. "bits" is the label for
// bit-addressed values; everything else passes through by name.
var labelByEncoding = map[types.DataEncoding]string{
	types.EncodingBool:    "bits",
	types.EncodingInt16:   "int16",
	types.EncodingUint16:  "uint16",
	types.EncodingInt32:   "int32",
	types.EncodingUint32:  "uint32",
	types.EncodingFloat32: "float32",
	types.EncodingFloat64: "float64",
	types.EncodingString:  "string",
}

var encodingByLabel = map[string]types.DataEncoding{
	"bits":    types.EncodingBool,
	"bytes":   types.EncodingUint16,
	"int16":   types.EncodingInt16,
	"uint16":  types.EncodingUint16,
	"int32":   types.EncodingInt32,
	"uint32":  types.EncodingUint32,
	"float32": types.EncodingFloat32,
	"float64": types.EncodingFloat64,
	"string":  types.EncodingString,
}

// Codec translates between the canonical point model and the two dialects.
type Codec struct {
	log *zap.Logger
}

func NewCodec(log *zap.Logger) *Codec {
	return &Codec{log: log}
}

// EncodeDocument serializes a controller and its points into the requested
// dialect.
func (c *Codec) EncodeDocument(ctrl types.Controller, points []types.Point, dialect Dialect) (*Document, error) {
	switch dialect {
	case DialectNative:
		return &Document{Dialect: DialectNative, Native: c.encodeNative(ctrl, points)}, nil
	case DialectGateway:
		return &Document{Dialect: DialectGateway, Gateway: c.encodeGateway(ctrl, points)}, nil
	default:
		return nil, newFormatError(dialect, "unsupported configuration format %q", string(dialect))
	}
}

func (c *Codec) encodeNative(ctrl types.Controller, points []types.Point) *NativeDocument {
	doc := &NativeDocument{
		Format:     string(DialectNative),
		ExportTime: time.Now().UTC().Format(time.RFC3339),
		Controller: NativeController{
			Name:    ctrl.Name,
			Host:    ctrl.Host,
			Port:    ctrl.Port,
			Timeout: ctrl.Timeout,
		},
		Points: make([]NativePoint, 0, len(points)),
	}

	for _, p := range points {
		doc.Points = append(doc.Points, NativePoint{
			Name:        p.Name,
			Description: p.Description,
			Type:        string(p.Kind),
			DataType:    string(p.Encoding),
			Address:     p.Address,
			Len:         p.Length,
			UnitID:      p.UnitID,
			Formula:     p.Formula,
			Unit:        p.Unit,
			MinValue:    p.MinValue,
			MaxValue:    p.MaxValue,
		})
	}

	return doc
}

// encodeGateway groups points by secondary device id and emits one slave
// block per group. Bit kinds land in attributes, register kinds in
// timeseries; every writable point additionally gets an rpc entry tagged
// with the write marker.
func (c *Codec) encodeGateway(ctrl types.Controller, points []types.Point) *GatewayDocument {
	byUnit := make(map[int][]types.Point)
	for _, p := range points {
		byUnit[p.UnitID] = append(byUnit[p.UnitID], p)
	}

	unitIDs := make([]int, 0, len(byUnit))
	for id := range byUnit {
		unitIDs = append(unitIDs, id)
	}
	sort.Ints(unitIDs)

	slaves := make([]GatewaySlave, 0, len(unitIDs))
	for _, unitID := range unitIDs {
		slave := GatewaySlave{
			Method:     "socket",
			Type:       "tcp",
			Host:       ctrl.Host,
			Port:       ctrl.Port,
			Timeout:    ctrl.Timeout,
			Retries:    defaultRetries,
			PollPeriod: defaultPollPeriod,
			UnitID:     unitID,
			DeviceName: ctrl.Name,
			DeviceType: strings.ToLower(strings.ReplaceAll(ctrl.Name, " ", "_")),
			Attributes: []GatewayItem{},
			Timeseries: []GatewayItem{},
			RPC:        []GatewayItem{},
		}

		for _, p := range byUnit[unitID] {
			item := GatewayItem{
				Tag:          p.Name,
				Type:         encodingLabel(p.Encoding),
				FunctionCode: ReadFunctionCode(p.Kind),
				Address:      p.Address,
				ObjectsCount: p.Length,
			}
			if p.Kind.Bit() {
				slave.Attributes = append(slave.Attributes, item)
			} else {
				slave.Timeseries = append(slave.Timeseries, item)
			}

			if writeCode, ok := WriteFunctionCode(p.Kind); ok {
				rpc := GatewayItem{
					Tag:          writeTagPrefix + p.Name,
					Type:         encodingLabel(p.Encoding),
					FunctionCode: writeCode,
					Address:      p.Address,
				}
				if p.Kind == types.PointKindHoldingRegister {
					rpc.ObjectsCount = p.Length
				}
				slave.RPC = append(slave.RPC, rpc)
			}
		}

		slaves = append(slaves, slave)
	}

	return &GatewayDocument{
		Master:     GatewayMaster{Slaves: slaves},
		ExportTime: time.Now().UTC().Format(time.RFC3339),
		Format:     string(DialectGateway),
	}
}

// DecodeDocument parses a validated document back into the canonical model.
// Entries that cannot be mapped become Failures rather than errors.
func (c *Codec) DecodeDocument(doc *Document) (*DecodedConfig, error) {
	switch doc.Dialect {
	case DialectNative:
		if doc.Native == nil {
			return nil, newFormatError(DialectNative, "document has no native payload")
		}
		return c.decodeNative(doc.Native), nil
	case DialectGateway:
		if doc.Gateway == nil {
			return nil, newFormatError(DialectGateway, "document has no gateway payload")
		}
		return c.decodeGateway(doc.Gateway)
	default:
		return nil, newFormatError(doc.Dialect, "unsupported configuration format %q", string(doc.Dialect))
	}
}

func (c *Codec) decodeNative(doc *NativeDocument) *DecodedConfig {
	dec := &DecodedConfig{
		Controller: IncomingController{
			Name:    doc.Controller.Name,
			Host:    doc.Controller.Host,
			Port:    doc.Controller.Port,
			Timeout: orDefault(doc.Controller.Timeout, defaultTimeout),
		},
	}

	for _, np := range doc.Points {
		point, err := nativePointToCanonical(np)
		if err != nil {
			dec.Failures = append(dec.Failures, PointFailure{Name: np.Name, Err: err})
			continue
		}
		dec.Points = append(dec.Points, point)
	}

	return dec
}

func nativePointToCanonical(np NativePoint) (IncomingPoint, error) {
	kind, err := types.ParsePointKind(np.Type)
	if err != nil {
		return IncomingPoint{}, &ConfigProcessingError{Tag: np.Name, Reason: err.Error()}
	}
	encoding, err := types.ParseDataEncoding(np.DataType)
	if err != nil {
		return IncomingPoint{}, &ConfigProcessingError{Tag: np.Name, Reason: err.Error()}
	}

	point := IncomingPoint{
		Name:        np.Name,
		Description: np.Description,
		Kind:        kind,
		Encoding:    encoding,
		Address:     np.Address,
		Length:      orDefault(np.Len, defaultLength),
		UnitID:      orDefault(np.UnitID, defaultUnitID),
		Formula:     np.Formula,
		Unit:        np.Unit,
		MinValue:    np.MinValue,
		MaxValue:    np.MaxValue,
	}

	if err := checkPoint(point); err != nil {
		return IncomingPoint{}, err
	}
	return point, nil
}

// naturalKey identifies a point within one controller.
type naturalKey struct {
	kind    types.PointKind
	address int
	unitID  int
}

// pointBuilder accumulates capability flags and attributes for one natural
// key across the gateway document's sections before the final point record
// is materialized.
type pointBuilder struct {
	name          string
	nameFromWrite bool
	encoding      types.DataEncoding
	length        int
	hasReadData   bool
	read          bool
	write         bool
}

// decodeGateway walks the sole slave's attribute, timeseries and rpc arrays
// and collapses entries sharing a natural key into one point. Capability is
// the union of the sections the key was seen in; write capability requested
// for a read-only kind is dropped, not stored.
func (c *Codec) decodeGateway(doc *GatewayDocument) (*DecodedConfig, error) {
	if len(doc.Master.Slaves) != 1 {
		return nil, &DuplicateError{
			Constraint: fmt.Sprintf("only single controller import is supported, found %d slaves", len(doc.Master.Slaves)),
		}
	}
	slave := doc.Master.Slaves[0]
	unitID := orDefault(slave.UnitID, defaultUnitID)

	dec := &DecodedConfig{
		Controller: IncomingController{
			Name:    slave.DeviceName,
			Host:    slave.Host,
			Port:    slave.Port,
			Timeout: orDefault(slave.Timeout, defaultTimeout),
		},
	}

	builders := make(map[naturalKey]*pointBuilder)
	var order []naturalKey

	merge := func(item GatewayItem, write bool) {
		kind, err := KindForFunctionCode(item.FunctionCode, item.Tag)
		if err != nil {
			dec.Failures = append(dec.Failures, PointFailure{Name: item.Tag, Err: err})
			return
		}

		name := item.Tag
		if write {
			name = strings.TrimPrefix(name, writeTagPrefix)
		}

		key := naturalKey{kind: kind, address: item.Address, unitID: unitID}
		b, ok := builders[key]
		if !ok {
			b = &pointBuilder{}
			builders[key] = b
			order = append(order, key)
		}

		if write {
			b.write = true
			// The un-prefixed write tag wins as display name.
			b.name = name
			b.nameFromWrite = true
		} else {
			b.read = true
			if !b.nameFromWrite {
				b.name = name
			}
		}

		// Write entries contribute capability only; encoding and length come
		// from a read-bearing section when one exists.
		if !write || !b.hasReadData {
			if enc, ok := encodingByLabel[item.Type]; ok {
				b.encoding = enc
			}
			if item.ObjectsCount > 0 {
				b.length = item.ObjectsCount
			}
			if !write {
				b.hasReadData = true
			}
		}
	}

	for _, item := range slave.Attributes {
		merge(item, false)
	}
	for _, item := range slave.Timeseries {
		merge(item, false)
	}
	for _, item := range slave.RPC {
		merge(item, true)
	}

	for _, key := range order {
		b := builders[key]

		if b.write && !key.kind.Writable() {
			c.log.Debug("dropping write capability for read-only point kind",
				zap.String("tag", b.name),
				zap.String("kind", string(key.kind)))
		}

		encoding := b.encoding
		if encoding == "" {
			encoding = types.EncodingUint16
		}

		point := IncomingPoint{
			Name:     b.name,
			Kind:     key.kind,
			Encoding: encoding,
			Address:  key.address,
			Length:   orDefault(b.length, defaultLength),
			UnitID:   key.unitID,
		}

		if err := checkPoint(point); err != nil {
			dec.Failures = append(dec.Failures, PointFailure{Name: point.Name, Err: err})
			continue
		}
		dec.Points = append(dec.Points, point)
	}

	return dec, nil
}

// checkPoint enforces per-point constraints shared by both dialects.
func checkPoint(p IncomingPoint) error {
	if p.Address < 0 {
		return &ConfigProcessingError{Tag: p.Name, Reason: fmt.Sprintf("address must not be negative, got %d", p.Address)}
	}
	if p.MinValue != nil && p.MaxValue != nil && *p.MinValue > *p.MaxValue {
		return &ConfigProcessingError{Tag: p.Name, Reason: "min_value must not exceed max_value"}
	}
	if p.Formula != "" {
		if _, err := expr.Compile(p.Formula, expr.Env(map[string]any{"value": float64(0)})); err != nil {
			return &ConfigProcessingError{Tag: p.Name, Reason: fmt.Sprintf("invalid formula: %v", err)}
		}
	}
	return nil
}

func encodingLabel(e types.DataEncoding) string {
	if label, ok := labelByEncoding[e]; ok {
		return label
	}
	return "bytes"
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
