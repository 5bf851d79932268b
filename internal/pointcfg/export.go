package pointcfg

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Assemble loads a controller and its points from the catalog and encodes
// them into the requested dialect, returning the document together with a
// deterministic, filesystem-safe filename.
func (c *Codec) Assemble(ctx context.Context, cat Catalog, controllerID uuid.UUID, dialect Dialect) (*Document, string, error) {
	ctrl, err := cat.ControllerByID(ctx, controllerID)
	if err != nil {
		return nil, "", err
	}

	points, err := cat.PointsByController(ctx, ctrl.ID)
	if err != nil {
		return nil, "", err
	}

	doc, err := c.EncodeDocument(*ctrl, points, dialect)
	if err != nil {
		return nil, "", err
	}

	return doc, exportFilename(ctrl.Name, dialect), nil
}

// exportFilename derives a filename from controller name and dialect.
// Lowercase, [a-z0-9_-] only, so the same input always yields the same
// safe name.
func exportFilename(controllerName string, dialect Dialect) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, controllerName)

	if slug == "" {
		slug = "controller"
	}

	return fmt.Sprintf("%s_%s_config.json", slug, dialect)
}
