package pointcfg

import (
	"context"
	"errors"

	"github.com/KevinKickass/OpenPointHub/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store hands out catalog views. Catalog() serves reads; InTransaction runs
// the callback against a transaction-scoped catalog so that every write of
// one import commits or rolls back together.
type Store interface {
	Catalog() Catalog
	InTransaction(ctx context.Context, fn func(Catalog) error) error
}

// Service is the configuration engine's entry point: export, import and
// validate, one controller per call, no internal parallelism.
type Service struct {
	store      Store
	codec      *Codec
	validator  *Validator
	reconciler *Reconciler
	log        *zap.Logger
}

func NewService(store Store, log *zap.Logger) (*Service, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, err
	}

	return &Service{
		store:      store,
		codec:      NewCodec(log),
		validator:  validator,
		reconciler: NewReconciler(log),
		log:        log,
	}, nil
}

// Export serializes one controller's catalog entries into the requested
// dialect.
func (s *Service) Export(ctx context.Context, controllerID uuid.UUID, dialect Dialect) (*Document, string, error) {
	doc, filename, err := s.codec.Assemble(ctx, s.store.Catalog(), controllerID, dialect)
	if err != nil {
		return nil, "", classify("export", err)
	}

	s.log.Info("exported controller configuration",
		zap.String("controller_id", controllerID.String()),
		zap.String("format", string(dialect)),
		zap.String("filename", filename))

	return doc, filename, nil
}

// ValidateDocument checks a raw document against the declared dialect
// without touching the catalog.
func (s *Service) ValidateDocument(raw []byte, dialect Dialect) (*ValidationResult, error) {
	_, result, err := s.validator.Validate(raw, dialect)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Import validates, decodes and reconciles one document against the
// catalog. All catalog writes happen inside a single transaction; partial
// success at the point level is a normal outcome, reported rather than
// raised.
func (s *Service) Import(ctx context.Context, raw []byte, dialect Dialect, mode types.ImportMode) (*ImportReport, error) {
	doc, _, err := s.validator.Validate(raw, dialect)
	if err != nil {
		return nil, err
	}

	dec, err := s.codec.DecodeDocument(doc)
	if err != nil {
		return nil, classify("import", err)
	}

	var report *ImportReport
	err = s.store.InTransaction(ctx, func(cat Catalog) error {
		var rerr error
		report, rerr = s.reconciler.Reconcile(ctx, cat, dec, mode)
		return rerr
	})
	if err != nil {
		return nil, classify("import", err)
	}

	s.log.Info("imported controller configuration",
		zap.String("controller", report.Controller.Name),
		zap.String("status", report.Controller.Status),
		zap.String("mode", string(mode)),
		zap.Int("total_points", report.TotalPoints))

	return report, nil
}

// classify passes the engine's own error taxonomy through verbatim and
// wraps everything else into a ServerError so the original message survives
// as a 500-class failure.
func classify(op string, err error) error {
	var formatErr *ConfigFormatError
	var processingErr *ConfigProcessingError
	var duplicateErr *DuplicateError
	if errors.As(err, &formatErr) || errors.As(err, &processingErr) ||
		errors.As(err, &duplicateErr) || errors.Is(err, types.ErrNotFound) {
		return err
	}
	return &ServerError{Op: op, Err: err}
}
