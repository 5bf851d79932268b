package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/KevinKickass/OpenPointHub/internal/pointcfg"
	"github.com/KevinKickass/OpenPointHub/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// catalog implements pointcfg.Catalog over either the pool or one
// transaction.
type catalog struct {
	q querier
}

const controllerColumns = `id, name, host, port, timeout, online, created_at, updated_at`

const pointColumns = `id, controller_id, name, description, kind, encoding,
		address, len, unit_id, formula, unit, min_value, max_value, created_at, updated_at`

func (c *catalog) ControllerByHostPort(ctx context.Context, host string, port int) (*types.Controller, error) {
	row := c.q.QueryRow(ctx, `
		SELECT `+controllerColumns+`
		FROM modbus_controllers
		WHERE host = $1 AND port = $2
	`, host, port)

	return scanController(row)
}

func (c *catalog) ControllerByID(ctx context.Context, id uuid.UUID) (*types.Controller, error) {
	row := c.q.QueryRow(ctx, `
		SELECT `+controllerColumns+`
		FROM modbus_controllers
		WHERE id = $1
	`, id)

	return scanController(row)
}

func (c *catalog) ListControllers(ctx context.Context) ([]types.Controller, error) {
	rows, err := c.q.Query(ctx, `
		SELECT `+controllerColumns+`
		FROM modbus_controllers
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query controllers: %w", err)
	}
	defer rows.Close()

	controllers := make([]types.Controller, 0)
	for rows.Next() {
		ctrl, err := scanController(rows)
		if err != nil {
			return nil, err
		}
		controllers = append(controllers, *ctrl)
	}

	return controllers, rows.Err()
}

func (c *catalog) CreateController(ctx context.Context, ctrl *types.Controller) error {
	err := c.q.QueryRow(ctx, `
		INSERT INTO modbus_controllers (name, host, port, timeout, online)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, ctrl.Name, ctrl.Host, ctrl.Port, ctrl.Timeout, ctrl.Online,
	).Scan(&ctrl.ID, &ctrl.CreatedAt, &ctrl.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert controller: %w", err)
	}
	return nil
}

func (c *catalog) UpdateController(ctx context.Context, id uuid.UUID, name string, timeout int) error {
	result, err := c.q.Exec(ctx, `
		UPDATE modbus_controllers
		SET name = $2, timeout = $3, updated_at = NOW()
		WHERE id = $1
	`, id, name, timeout)

	if err != nil {
		return fmt.Errorf("failed to update controller: %w", err)
	}
	if result.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (c *catalog) PointsByController(ctx context.Context, controllerID uuid.UUID) ([]types.Point, error) {
	rows, err := c.q.Query(ctx, `
		SELECT `+pointColumns+`
		FROM modbus_points
		WHERE controller_id = $1
		ORDER BY unit_id, address, kind
	`, controllerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer rows.Close()

	points := make([]types.Point, 0)
	for rows.Next() {
		var p types.Point
		if err := scanPoint(rows, &p); err != nil {
			return nil, err
		}
		points = append(points, p)
	}

	return points, rows.Err()
}

func (c *catalog) PointByNaturalKey(ctx context.Context, controllerID uuid.UUID, unitID, address int, kind types.PointKind) (*types.Point, error) {
	row := c.q.QueryRow(ctx, `
		SELECT `+pointColumns+`
		FROM modbus_points
		WHERE controller_id = $1 AND unit_id = $2 AND address = $3 AND kind = $4
	`, controllerID, unitID, address, string(kind))

	var p types.Point
	if err := scanPoint(row, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *catalog) DeleteControllerPoints(ctx context.Context, controllerID uuid.UUID) error {
	if _, err := c.q.Exec(ctx, `
		DELETE FROM modbus_points
		WHERE controller_id = $1
	`, controllerID); err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

func (c *catalog) CreatePoint(ctx context.Context, p *types.Point) error {
	err := c.q.QueryRow(ctx, `
		INSERT INTO modbus_points
			(controller_id, name, description, kind, encoding, address, len,
			 unit_id, formula, unit, min_value, max_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`, p.ControllerID, p.Name, p.Description, string(p.Kind), string(p.Encoding),
		p.Address, p.Length, p.UnitID, p.Formula, p.Unit, p.MinValue, p.MaxValue,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert point: %w", err)
	}
	return nil
}

func (c *catalog) UpdatePoint(ctx context.Context, id uuid.UUID, upd pointcfg.PointUpdate) error {
	result, err := c.q.Exec(ctx, `
		UPDATE modbus_points
		SET name = $2, description = $3, encoding = $4, len = $5,
			formula = $6, unit = $7, min_value = $8, max_value = $9,
			updated_at = NOW()
		WHERE id = $1
	`, id, upd.Name, upd.Description, string(upd.Encoding), upd.Length,
		upd.Formula, upd.Unit, upd.MinValue, upd.MaxValue)

	if err != nil {
		return fmt.Errorf("failed to update point: %w", err)
	}
	if result.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func scanController(row pgx.Row) (*types.Controller, error) {
	var ctrl types.Controller
	err := row.Scan(&ctrl.ID, &ctrl.Name, &ctrl.Host, &ctrl.Port,
		&ctrl.Timeout, &ctrl.Online, &ctrl.CreatedAt, &ctrl.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan controller: %w", err)
	}
	return &ctrl, nil
}

func scanPoint(row pgx.Row, p *types.Point) error {
	err := row.Scan(&p.ID, &p.ControllerID, &p.Name, &p.Description,
		&p.Kind, &p.Encoding, &p.Address, &p.Length, &p.UnitID,
		&p.Formula, &p.Unit, &p.MinValue, &p.MaxValue,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to scan point: %w", err)
	}
	return nil
}
