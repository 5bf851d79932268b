package pointcfg

import (
	"context"
	"testing"

	"github.com/KevinKickass/OpenPointHub/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAssembleNative(t *testing.T) {
	cat, ctrlID, _ := seedCatalog(t)

	doc, filename, err := testCodec().Assemble(context.Background(), cat, ctrlID, DialectNative)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	require.NotNil(t, doc.Native)
	require.Equal(t, "Boiler PLC", doc.Native.Controller.Name)
	require.Len(t, doc.Native.Points, 1)
	require.Equal(t, "temp", doc.Native.Points[0].Name)
	require.Equal(t, "boiler_plc_native_config.json", filename)
}

func TestAssembleGatewayGroupsByUnitID(t *testing.T) {
	cat, ctrlID, _ := seedCatalog(t)

	extra := &types.Point{
		ControllerID: ctrlID,
		Name:         "valve",
		Kind:         types.PointKindCoil,
		Encoding:     types.EncodingBool,
		Address:      3,
		Length:       1,
		UnitID:       4,
	}
	if err := cat.CreatePoint(context.Background(), extra); err != nil {
		t.Fatalf("CreatePoint: %v", err)
	}

	doc, filename, err := testCodec().Assemble(context.Background(), cat, ctrlID, DialectGateway)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	require.NotNil(t, doc.Gateway)
	require.Len(t, doc.Gateway.Master.Slaves, 2)
	require.Equal(t, 1, doc.Gateway.Master.Slaves[0].UnitID, "slaves sorted by unit id")
	require.Equal(t, 4, doc.Gateway.Master.Slaves[1].UnitID)
	require.Equal(t, "boiler_plc_gateway_config.json", filename)
}

func TestAssembleUnknownController(t *testing.T) {
	cat := newFakeCatalog()

	_, _, err := testCodec().Assemble(context.Background(), cat, uuid.New(), DialectNative)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestExportFilenameSanitization(t *testing.T) {
	cases := []struct {
		name    string
		dialect Dialect
		want    string
	}{
		{"Boiler PLC", DialectGateway, "boiler_plc_gateway_config.json"},
		{"Halle 3 / Ofen #2", DialectNative, "halle_3___ofen__2_native_config.json"},
		{"plant-a_line2", DialectNative, "plant-a_line2_native_config.json"},
		{"", DialectGateway, "controller_gateway_config.json"},
		{"ÄÖÜ", DialectNative, "____native_config.json"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, exportFilename(tc.name, tc.dialect), "name %q", tc.name)
	}
}

// Export filenames are deterministic across calls.
func TestExportFilenameDeterministic(t *testing.T) {
	first := exportFilename("Boiler PLC", DialectGateway)
	second := exportFilename("Boiler PLC", DialectGateway)
	require.Equal(t, first, second)
}
