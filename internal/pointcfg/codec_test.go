package pointcfg

import (
	"errors"
	"testing"

	"github.com/KevinKickass/OpenPointHub/internal/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testCodec() *Codec {
	return NewCodec(zap.NewNop())
}

func floatPtr(v float64) *float64 {
	return &v
}

func testController() types.Controller {
	return types.Controller{
		Name:    "Boiler PLC",
		Host:    "10.0.0.5",
		Port:    502,
		Timeout: 5,
	}
}

func TestNativeRoundTrip(t *testing.T) {
	codec := testCodec()
	ctrl := testController()
	points := []types.Point{
		{
			Name: "pump_state", Kind: types.PointKindCoil, Encoding: types.EncodingBool,
			Address: 10, Length: 1, UnitID: 1,
		},
		{
			Name: "door_contact", Kind: types.PointKindDiscreteInput, Encoding: types.EncodingBool,
			Address: 11, Length: 1, UnitID: 2,
		},
		{
			Name: "flow_setpoint", Kind: types.PointKindHoldingRegister, Encoding: types.EncodingFloat32,
			Address: 100, Length: 2, UnitID: 1, Formula: "value * 0.1", Unit: "l/min",
			MinValue: floatPtr(0), MaxValue: floatPtr(400),
		},
		{
			Name: "supply_temp", Kind: types.PointKindInputRegister, Encoding: types.EncodingInt16,
			Address: 200, Length: 1, UnitID: 1, Description: "supply line sensor",
		},
	}

	doc, err := codec.EncodeDocument(ctrl, points, DialectNative)
	if err != nil {
		t.Fatalf("EncodeDocument: %v", err)
	}

	dec, err := codec.DecodeDocument(doc)
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}

	require.Empty(t, dec.Failures)
	require.Len(t, dec.Points, len(points))
	require.Equal(t, ctrl.Host, dec.Controller.Host)
	require.Equal(t, ctrl.Port, dec.Controller.Port)
	require.Equal(t, ctrl.Timeout, dec.Controller.Timeout)

	for i, p := range points {
		got := dec.Points[i]
		require.Equal(t, p.Kind, got.Kind, p.Name)
		require.Equal(t, p.Encoding, got.Encoding, p.Name)
		require.Equal(t, p.Address, got.Address, p.Name)
		require.Equal(t, p.Length, got.Length, p.Name)
		require.Equal(t, p.UnitID, got.UnitID, p.Name)
		require.Equal(t, p.Formula, got.Formula, p.Name)
		require.Equal(t, p.Unit, got.Unit, p.Name)
		require.Equal(t, p.MinValue, got.MinValue, p.Name)
		require.Equal(t, p.MaxValue, got.MaxValue, p.Name)
	}
}

func TestNativeRoundTripEmptyPointSet(t *testing.T) {
	codec := testCodec()

	doc, err := codec.EncodeDocument(testController(), nil, DialectNative)
	if err != nil {
		t.Fatalf("EncodeDocument: %v", err)
	}

	dec, err := codec.DecodeDocument(doc)
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	if len(dec.Points) != 0 || len(dec.Failures) != 0 {
		t.Fatalf("expected empty decode, got %d points, %d failures", len(dec.Points), len(dec.Failures))
	}
}

func TestGatewayRoundTripSingleDevice(t *testing.T) {
	codec := testCodec()
	points := []types.Point{
		{Name: "pump", Kind: types.PointKindCoil, Encoding: types.EncodingBool, Address: 1, Length: 1, UnitID: 1},
		{Name: "alarm", Kind: types.PointKindDiscreteInput, Encoding: types.EncodingBool, Address: 2, Length: 1, UnitID: 1},
		{Name: "setpoint", Kind: types.PointKindHoldingRegister, Encoding: types.EncodingUint16, Address: 50, Length: 1, UnitID: 1},
		{Name: "temperature", Kind: types.PointKindInputRegister, Encoding: types.EncodingInt16, Address: 60, Length: 1, UnitID: 1},
	}

	doc, err := codec.EncodeDocument(testController(), points, DialectGateway)
	if err != nil {
		t.Fatalf("EncodeDocument: %v", err)
	}
	require.Len(t, doc.Gateway.Master.Slaves, 1)

	slave := doc.Gateway.Master.Slaves[0]
	require.Len(t, slave.Attributes, 2, "bit kinds go to attributes")
	require.Len(t, slave.Timeseries, 2, "register kinds go to timeseries")
	require.Len(t, slave.RPC, 2, "only writable kinds get rpc entries")
	for _, rpc := range slave.RPC {
		require.Contains(t, []string{"set_pump", "set_setpoint"}, rpc.Tag)
	}

	dec, err := codec.DecodeDocument(doc)
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	require.Empty(t, dec.Failures)
	require.Len(t, dec.Points, len(points))

	type key struct {
		kind    types.PointKind
		address int
	}
	want := map[key]bool{}
	for _, p := range points {
		want[key{p.Kind, p.Address}] = true
	}
	for _, p := range dec.Points {
		if !want[key{p.Kind, p.Address}] {
			t.Fatalf("unexpected decoded point (%s, %d)", p.Kind, p.Address)
		}
	}
}

func TestGatewaySectionMergeIdempotence(t *testing.T) {
	codec := testCodec()
	doc := &Document{Dialect: DialectGateway, Gateway: &GatewayDocument{
		Master: GatewayMaster{Slaves: []GatewaySlave{{
			Host: "10.0.0.5", Port: 502, UnitID: 1, DeviceName: "plc",
			Attributes: []GatewayItem{
				{Tag: "pump", Type: "bits", FunctionCode: 1, Address: 5},
			},
			RPC: []GatewayItem{
				{Tag: "set_pump", Type: "bits", FunctionCode: 5, Address: 5},
			},
		}}},
	}}

	dec, err := codec.DecodeDocument(doc)
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	require.Empty(t, dec.Failures)
	require.Len(t, dec.Points, 1, "matching sections must collapse to one point")
	require.Equal(t, "pump", dec.Points[0].Name)
	require.Equal(t, types.PointKindCoil, dec.Points[0].Kind)
}

func TestGatewayWriteTagOverridesReadName(t *testing.T) {
	codec := testCodec()
	doc := &Document{Dialect: DialectGateway, Gateway: &GatewayDocument{
		Master: GatewayMaster{Slaves: []GatewaySlave{{
			Host: "10.0.0.5", Port: 502, UnitID: 1, DeviceName: "plc",
			Timeseries: []GatewayItem{
				{Tag: "flow_raw", Type: "uint16", FunctionCode: 3, Address: 20, ObjectsCount: 1},
			},
			RPC: []GatewayItem{
				{Tag: "set_flow", Type: "uint16", FunctionCode: 6, Address: 20},
			},
		}}},
	}}

	dec, err := codec.DecodeDocument(doc)
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	require.Len(t, dec.Points, 1)
	require.Equal(t, "flow", dec.Points[0].Name, "un-prefixed write tag wins as display name")
}

func TestGatewayRPCOnlyPointMaterializes(t *testing.T) {
	codec := testCodec()
	doc := &Document{Dialect: DialectGateway, Gateway: &GatewayDocument{
		Master: GatewayMaster{Slaves: []GatewaySlave{{
			Host: "10.0.0.5", Port: 502, UnitID: 3, DeviceName: "plc",
			RPC: []GatewayItem{
				{Tag: "set_mode", Type: "uint16", FunctionCode: 6, Address: 7, ObjectsCount: 1},
			},
		}}},
	}}

	dec, err := codec.DecodeDocument(doc)
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	require.Len(t, dec.Points, 1)
	require.Equal(t, "mode", dec.Points[0].Name)
	require.Equal(t, types.PointKindHoldingRegister, dec.Points[0].Kind)
	require.Equal(t, 3, dec.Points[0].UnitID)
}

func TestGatewayWriteCapabilityDroppedForReadOnlyKind(t *testing.T) {
	codec := testCodec()
	// Function code 4 is a read of an input register; listing it under rpc
	// requests write capability the kind cannot carry.
	doc := &Document{Dialect: DialectGateway, Gateway: &GatewayDocument{
		Master: GatewayMaster{Slaves: []GatewaySlave{{
			Host: "10.0.0.5", Port: 502, UnitID: 1, DeviceName: "plc",
			Timeseries: []GatewayItem{
				{Tag: "sensor", Type: "int16", FunctionCode: 4, Address: 30, ObjectsCount: 1},
			},
			RPC: []GatewayItem{
				{Tag: "set_sensor", Type: "int16", FunctionCode: 4, Address: 30},
			},
		}}},
	}}

	dec, err := codec.DecodeDocument(doc)
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	require.Empty(t, dec.Failures)
	require.Len(t, dec.Points, 1)
	require.Equal(t, types.PointKindInputRegister, dec.Points[0].Kind)

	// Re-encoding must not grant the point a write path.
	out, err := codec.EncodeDocument(testController(), []types.Point{{
		Name:     dec.Points[0].Name,
		Kind:     dec.Points[0].Kind,
		Encoding: dec.Points[0].Encoding,
		Address:  dec.Points[0].Address,
		Length:   dec.Points[0].Length,
		UnitID:   dec.Points[0].UnitID,
	}}, DialectGateway)
	if err != nil {
		t.Fatalf("EncodeDocument: %v", err)
	}
	require.Empty(t, out.Gateway.Master.Slaves[0].RPC)
}

func TestGatewayUnmappedFunctionCodeBecomesFailure(t *testing.T) {
	codec := testCodec()
	doc := &Document{Dialect: DialectGateway, Gateway: &GatewayDocument{
		Master: GatewayMaster{Slaves: []GatewaySlave{{
			Host: "10.0.0.5", Port: 502, UnitID: 1, DeviceName: "plc",
			Timeseries: []GatewayItem{
				{Tag: "good", Type: "uint16", FunctionCode: 3, Address: 1, ObjectsCount: 1},
				{Tag: "bad", Type: "uint16", FunctionCode: 42, Address: 2, ObjectsCount: 1},
			},
		}}},
	}}

	dec, err := codec.DecodeDocument(doc)
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	require.Len(t, dec.Points, 1, "unmapped entry must not abort the rest")
	require.Len(t, dec.Failures, 1)
	require.Equal(t, "bad", dec.Failures[0].Name)

	var processingErr *ConfigProcessingError
	require.True(t, errors.As(dec.Failures[0].Err, &processingErr))
}

func TestGatewayDecodeRejectsMultipleSlaves(t *testing.T) {
	codec := testCodec()
	doc := &Document{Dialect: DialectGateway, Gateway: &GatewayDocument{
		Master: GatewayMaster{Slaves: []GatewaySlave{
			{Host: "10.0.0.5", Port: 502, DeviceName: "a"},
			{Host: "10.0.0.6", Port: 502, DeviceName: "b"},
		}},
	}}

	_, err := codec.DecodeDocument(doc)
	var duplicateErr *DuplicateError
	if !errors.As(err, &duplicateErr) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}
}

func TestGatewayEncodeGroupsByUnitID(t *testing.T) {
	codec := testCodec()
	points := []types.Point{
		{Name: "a", Kind: types.PointKindHoldingRegister, Encoding: types.EncodingUint16, Address: 1, Length: 1, UnitID: 2},
		{Name: "b", Kind: types.PointKindHoldingRegister, Encoding: types.EncodingUint16, Address: 2, Length: 1, UnitID: 1},
		{Name: "c", Kind: types.PointKindCoil, Encoding: types.EncodingBool, Address: 3, Length: 1, UnitID: 2},
	}

	doc, err := codec.EncodeDocument(testController(), points, DialectGateway)
	if err != nil {
		t.Fatalf("EncodeDocument: %v", err)
	}

	slaves := doc.Gateway.Master.Slaves
	require.Len(t, slaves, 2)
	require.Equal(t, 1, slaves[0].UnitID, "slaves ordered by unit id")
	require.Equal(t, 2, slaves[1].UnitID)
	require.Len(t, slaves[1].Attributes, 1)
	require.Len(t, slaves[1].Timeseries, 1)
}

func TestNativeDecodeInvalidFormulaBecomesFailure(t *testing.T) {
	codec := testCodec()
	doc := &Document{Dialect: DialectNative, Native: &NativeDocument{
		Controller: NativeController{Name: "plc", Host: "10.0.0.5", Port: 502},
		Points: []NativePoint{
			{Name: "ok", Type: "coil", DataType: "bool", Address: 1},
			{Name: "broken", Type: "holding_register", DataType: "uint16", Address: 2, Formula: "value +"},
		},
	}}

	dec, err := codec.DecodeDocument(doc)
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	require.Len(t, dec.Points, 1)
	require.Len(t, dec.Failures, 1)
	require.Equal(t, "broken", dec.Failures[0].Name)
}

func TestNativeDecodeInvalidBoundsBecomesFailure(t *testing.T) {
	codec := testCodec()
	doc := &Document{Dialect: DialectNative, Native: &NativeDocument{
		Controller: NativeController{Name: "plc", Host: "10.0.0.5", Port: 502},
		Points: []NativePoint{
			{Name: "inverted", Type: "input_register", DataType: "int16", Address: 1,
				MinValue: floatPtr(100), MaxValue: floatPtr(0)},
		},
	}}

	dec, err := codec.DecodeDocument(doc)
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	require.Empty(t, dec.Points)
	require.Len(t, dec.Failures, 1)
}

func TestNativeDecodeAppliesDefaults(t *testing.T) {
	codec := testCodec()
	doc := &Document{Dialect: DialectNative, Native: &NativeDocument{
		Controller: NativeController{Name: "plc", Host: "10.0.0.5", Port: 502},
		Points: []NativePoint{
			{Name: "p", Type: "coil", DataType: "bool", Address: 1},
		},
	}}

	dec, err := codec.DecodeDocument(doc)
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	require.Equal(t, defaultTimeout, dec.Controller.Timeout)
	require.Equal(t, defaultLength, dec.Points[0].Length)
	require.Equal(t, defaultUnitID, dec.Points[0].UnitID)
}

func TestEncodeUnsupportedDialect(t *testing.T) {
	codec := testCodec()
	_, err := codec.EncodeDocument(testController(), nil, Dialect("csv"))

	var formatErr *ConfigFormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected ConfigFormatError, got %v", err)
	}
}
