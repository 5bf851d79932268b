package pointcfg

import (
	"context"
	"errors"

	"github.com/KevinKickass/OpenPointHub/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Catalog is the store contract the engine reconciles against. All methods
// called within one import are expected to share one ambient transaction;
// lookups signal absence with types.ErrNotFound.
type Catalog interface {
	ControllerByHostPort(ctx context.Context, host string, port int) (*types.Controller, error)
	ControllerByID(ctx context.Context, id uuid.UUID) (*types.Controller, error)
	PointsByController(ctx context.Context, controllerID uuid.UUID) ([]types.Point, error)
	PointByNaturalKey(ctx context.Context, controllerID uuid.UUID, unitID, address int, kind types.PointKind) (*types.Point, error)
	CreateController(ctx context.Context, ctrl *types.Controller) error
	UpdateController(ctx context.Context, id uuid.UUID, name string, timeout int) error
	DeleteControllerPoints(ctx context.Context, controllerID uuid.UUID) error
	CreatePoint(ctx context.Context, p *types.Point) error
	UpdatePoint(ctx context.Context, id uuid.UUID, upd PointUpdate) error
}

// PointUpdate carries the mutable fields of an existing point. The store
// stamps the update time.
type PointUpdate struct {
	Name        string
	Description string
	Encoding    types.DataEncoding
	Length      int
	Formula     string
	Unit        string
	MinValue    *float64
	MaxValue    *float64
}

// Result statuses. Controllers report success/failed/skipped, points report
// success/skipped/error.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

type ControllerResult struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type PointResult struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ImportReport struct {
	Controller  ControllerResult `json:"controller"`
	Points      []PointResult    `json:"points"`
	TotalPoints int              `json:"total_points"`
}

// Reconciler merges one decoded document into the catalog under the
// selected import mode.
type Reconciler struct {
	log *zap.Logger
}

func NewReconciler(log *zap.Logger) *Reconciler {
	return &Reconciler{log: log}
}

// Reconcile resolves controller- and point-level conflicts and emits a
// structured report. Per-point failures are downgraded to error results;
// only store failures outside a single point's scope abort the call.
func (r *Reconciler) Reconcile(ctx context.Context, cat Catalog, dec *DecodedConfig, mode types.ImportMode) (*ImportReport, error) {
	existing, err := cat.ControllerByHostPort(ctx, dec.Controller.Host, dec.Controller.Port)
	switch {
	case err == nil:
		return r.reconcileExisting(ctx, cat, existing, dec, mode)
	case errors.Is(err, types.ErrNotFound):
		return r.createFresh(ctx, cat, dec)
	default:
		return nil, err
	}
}

// createFresh creates the controller and every incoming point
// unconditionally.
func (r *Reconciler) createFresh(ctx context.Context, cat Catalog, dec *DecodedConfig) (*ImportReport, error) {
	ctrl := &types.Controller{
		Name:    dec.Controller.Name,
		Host:    dec.Controller.Host,
		Port:    dec.Controller.Port,
		Timeout: dec.Controller.Timeout,
		Online:  false,
	}
	if err := cat.CreateController(ctx, ctrl); err != nil {
		return nil, err
	}

	results := r.createAllPoints(ctx, cat, ctrl.ID, dec)

	return &ImportReport{
		Controller: ControllerResult{
			ID:      ctrl.ID.String(),
			Name:    ctrl.Name,
			Status:  StatusSuccess,
			Message: "Controller and points created successfully",
		},
		Points:      results,
		TotalPoints: dec.TotalPoints(),
	}, nil
}

func (r *Reconciler) reconcileExisting(ctx context.Context, cat Catalog, existing *types.Controller, dec *DecodedConfig, mode types.ImportMode) (*ImportReport, error) {
	switch mode {
	case types.ImportSkipController:
		return &ImportReport{
			Controller: ControllerResult{
				ID:      existing.ID.String(),
				Name:    dec.Controller.Name,
				Status:  StatusSkipped,
				Message: "Controller already exists",
			},
			Points:      []PointResult{},
			TotalPoints: dec.TotalPoints(),
		}, nil

	case types.ImportOverwriteController:
		return r.overwriteController(ctx, cat, existing, dec)

	case types.ImportSkipDuplicatePoints, types.ImportOverwriteDuplicates:
		return r.reconcilePoints(ctx, cat, existing, dec, mode)

	default:
		return nil, &DuplicateError{
			Constraint: "controller " + existing.Host + " already exists and no reconciliation mode was supplied",
		}
	}
}

// overwriteController updates the controller's mutable fields, drops all of
// its points and recreates them from the document.
func (r *Reconciler) overwriteController(ctx context.Context, cat Catalog, existing *types.Controller, dec *DecodedConfig) (*ImportReport, error) {
	if err := cat.UpdateController(ctx, existing.ID, dec.Controller.Name, dec.Controller.Timeout); err != nil {
		return nil, err
	}
	if err := cat.DeleteControllerPoints(ctx, existing.ID); err != nil {
		return nil, err
	}

	results := r.createAllPoints(ctx, cat, existing.ID, dec)

	return &ImportReport{
		Controller: ControllerResult{
			ID:      existing.ID.String(),
			Name:    dec.Controller.Name,
			Status:  StatusSuccess,
			Message: "Controller and points overwritten successfully",
		},
		Points:      results,
		TotalPoints: dec.TotalPoints(),
	}, nil
}

// reconcilePoints leaves the controller untouched and matches each incoming
// point by its natural key.
func (r *Reconciler) reconcilePoints(ctx context.Context, cat Catalog, existing *types.Controller, dec *DecodedConfig, mode types.ImportMode) (*ImportReport, error) {
	results := make([]PointResult, 0, dec.TotalPoints())

	for _, point := range dec.Points {
		result, err := r.reconcileSinglePoint(ctx, cat, existing.ID, point, mode)
		if err != nil {
			r.log.Error("error processing point",
				zap.String("point", point.Name),
				zap.Error(err))
			results = append(results, PointResult{
				Name:    point.Name,
				Status:  StatusError,
				Message: err.Error(),
			})
			continue
		}
		results = append(results, result)
	}

	results = append(results, failureResults(dec.Failures)...)

	report := &ImportReport{
		Points:      results,
		TotalPoints: dec.TotalPoints(),
	}
	report.Controller = aggregateControllerResult(existing.ID.String(), existing.Name, results)
	return report, nil
}

func (r *Reconciler) reconcileSinglePoint(ctx context.Context, cat Catalog, controllerID uuid.UUID, point IncomingPoint, mode types.ImportMode) (PointResult, error) {
	existing, err := cat.PointByNaturalKey(ctx, controllerID, point.UnitID, point.Address, point.Kind)
	switch {
	case errors.Is(err, types.ErrNotFound):
		return r.createPoint(ctx, cat, controllerID, point)
	case err != nil:
		return PointResult{}, err
	}

	if mode == types.ImportSkipDuplicatePoints {
		return PointResult{
			Name:    point.Name,
			Status:  StatusSkipped,
			Message: "Point already exists",
		}, nil
	}

	upd := PointUpdate{
		Name:        point.Name,
		Description: point.Description,
		Encoding:    point.Encoding,
		Length:      point.Length,
		Formula:     point.Formula,
		Unit:        point.Unit,
		MinValue:    point.MinValue,
		MaxValue:    point.MaxValue,
	}
	if err := cat.UpdatePoint(ctx, existing.ID, upd); err != nil {
		return PointResult{}, err
	}

	return PointResult{
		ID:      existing.ID.String(),
		Name:    point.Name,
		Status:  StatusSuccess,
		Message: "Point updated successfully",
	}, nil
}

func (r *Reconciler) createPoint(ctx context.Context, cat Catalog, controllerID uuid.UUID, point IncomingPoint) (PointResult, error) {
	row := &types.Point{
		ControllerID: controllerID,
		Name:         point.Name,
		Description:  point.Description,
		Kind:         point.Kind,
		Encoding:     point.Encoding,
		Address:      point.Address,
		Length:       point.Length,
		UnitID:       point.UnitID,
		Formula:      point.Formula,
		Unit:         point.Unit,
		MinValue:     point.MinValue,
		MaxValue:     point.MaxValue,
	}
	if err := cat.CreatePoint(ctx, row); err != nil {
		return PointResult{}, err
	}
	return PointResult{
		ID:      row.ID.String(),
		Name:    row.Name,
		Status:  StatusSuccess,
		Message: "Point created successfully",
	}, nil
}

// createAllPoints creates every decoded point; individual failures become
// error results and never abort the batch.
func (r *Reconciler) createAllPoints(ctx context.Context, cat Catalog, controllerID uuid.UUID, dec *DecodedConfig) []PointResult {
	results := make([]PointResult, 0, dec.TotalPoints())

	for _, point := range dec.Points {
		result, err := r.createPoint(ctx, cat, controllerID, point)
		if err != nil {
			r.log.Error("error creating point",
				zap.String("point", point.Name),
				zap.Error(err))
			results = append(results, PointResult{
				Name:    point.Name,
				Status:  StatusError,
				Message: err.Error(),
			})
			continue
		}
		results = append(results, result)
	}

	return append(results, failureResults(dec.Failures)...)
}

func failureResults(failures []PointFailure) []PointResult {
	results := make([]PointResult, 0, len(failures))
	for _, f := range failures {
		results = append(results, PointResult{
			Name:    f.Name,
			Status:  StatusError,
			Message: f.Err.Error(),
		})
	}
	return results
}

// aggregateControllerResult derives the controller status from its point
// results: any success wins; all-errored and all-skipped batches both count
// as failed.
func aggregateControllerResult(id, name string, points []PointResult) ControllerResult {
	var success, skipped, errored int
	for _, p := range points {
		switch p.Status {
		case StatusSuccess:
			success++
		case StatusSkipped:
			skipped++
		case StatusError:
			errored++
		}
	}

	switch {
	case success > 0:
		return ControllerResult{ID: id, Name: name, Status: StatusSuccess, Message: "Controller updated with point changes"}
	case errored > 0 && skipped == 0:
		return ControllerResult{ID: id, Name: name, Status: StatusFailed, Message: "All points failed to import"}
	case skipped > 0 && errored == 0:
		return ControllerResult{ID: id, Name: name, Status: StatusFailed, Message: "All points already exist"}
	default:
		return ControllerResult{ID: id, Name: name, Status: StatusSuccess, Message: "Controller updated with point changes"}
	}
}
