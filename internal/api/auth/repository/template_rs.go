package authRepository

import (
	"FaceAuthIdP/internal/entity"

	"github.com/jmoiron/sqlx"
	"golang.org/x/net/context"
)

// GetActive returns active templates in a stable order; the resolver tries
// them first-match-wins.
func (r *templateRepository) GetActive(ctx context.Context) ([]entity.CardTemplate, error) {
	rows, err := sqlx.NamedQueryContext(ctx, r.q, queryGetActiveTemplates, map[string]interface{}{})
	if err != nil {
		r.log.Errorf("Failed to query active card templates: %v", err)
		return nil, err
	}
	defer rows.Close()

	var templates []entity.CardTemplate
	for rows.Next() {
		var t entity.CardTemplate
		if err := rows.StructScan(&t); err != nil {
			r.log.Errorf("Failed to scan card template: %v", err)
			return nil, err
		}
		templates = append(templates, t)
	}

	return templates, rows.Err()
}
