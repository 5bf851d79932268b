package pointcfg

import (
	"context"
	"testing"

	"github.com/KevinKickass/OpenPointHub/internal/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore routes both the read view and the transactional view to the same
// in-memory catalog.
type fakeStore struct {
	cat *fakeCatalog
}

func (f *fakeStore) Catalog() Catalog { return f.cat }

func (f *fakeStore) InTransaction(_ context.Context, fn func(Catalog) error) error {
	return fn(f.cat)
}

func testService(t *testing.T, cat *fakeCatalog) *Service {
	t.Helper()
	svc, err := NewService(&fakeStore{cat: cat}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestServiceImportNative(t *testing.T) {
	cat := newFakeCatalog()
	svc := testService(t, cat)

	report, err := svc.Import(context.Background(), []byte(validNativeJSON), DialectNative, types.ImportSkipController)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	require.Equal(t, StatusSuccess, report.Controller.Status)
	require.Len(t, cat.controllers, 1)
	require.NotEmpty(t, cat.points)
}

func TestServiceImportRejectsDialectMismatch(t *testing.T) {
	svc := testService(t, newFakeCatalog())

	_, err := svc.Import(context.Background(), []byte(validNativeJSON), DialectGateway, types.ImportSkipController)

	var formatErr *ConfigFormatError
	require.ErrorAs(t, err, &formatErr)
	require.Equal(t, DialectGateway, formatErr.Expected)
	require.Equal(t, DialectNative, formatErr.Detected)
}

func TestServiceImportIsIdempotentUnderSkipController(t *testing.T) {
	cat := newFakeCatalog()
	svc := testService(t, cat)

	if _, err := svc.Import(context.Background(), []byte(validNativeJSON), DialectNative, types.ImportSkipController); err != nil {
		t.Fatalf("first Import: %v", err)
	}
	pointsBefore := len(cat.points)

	report, err := svc.Import(context.Background(), []byte(validNativeJSON), DialectNative, types.ImportSkipController)
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}

	require.Equal(t, StatusSkipped, report.Controller.Status)
	require.Len(t, cat.controllers, 1)
	require.Len(t, cat.points, pointsBefore)
}

func TestServiceExportAfterImportRoundTrips(t *testing.T) {
	cat := newFakeCatalog()
	svc := testService(t, cat)

	report, err := svc.Import(context.Background(), []byte(validGatewayJSON), DialectGateway, types.ImportSkipController)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	ctrl, err := cat.ControllerByHostPort(context.Background(), "10.0.0.5", 502)
	if err != nil {
		t.Fatalf("ControllerByHostPort: %v", err)
	}

	doc, filename, err := svc.Export(context.Background(), ctrl.ID, DialectGateway)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	require.NotNil(t, doc.Gateway)
	require.Len(t, doc.Gateway.Master.Slaves, 1)
	require.Contains(t, filename, "_gateway_config.json")
	require.Equal(t, report.TotalPoints, len(doc.Gateway.Master.Slaves[0].Attributes)+
		len(doc.Gateway.Master.Slaves[0].Timeseries), "every imported point lands in a read section")
}

func TestServiceValidateDocument(t *testing.T) {
	svc := testService(t, newFakeCatalog())

	result, err := svc.ValidateDocument([]byte(validNativeJSON), DialectNative)
	if err != nil {
		t.Fatalf("ValidateDocument: %v", err)
	}
	require.True(t, result.IsValid)
	require.Empty(t, result.Errors)
}
