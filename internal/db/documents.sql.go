package db

import (
	"context"

	"github.com/google/uuid"
)

const listDocumentsByProject = `-- name: ListDocumentsByProject :many
SELECT id, project_id, name, url, document_category, review_stage, size,
       description, is_active, created_at
FROM project_documents
WHERE project_id = $1
ORDER BY created_at, name
`

func (q *Queries) ListDocumentsByProject(ctx context.Context, projectID uuid.UUID) ([]ProjectDocument, error) {
	rows, err := q.db.QueryContext(ctx, listDocumentsByProject, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ProjectDocument
	for rows.Next() {
		var i ProjectDocument
		if err := rows.Scan(
			&i.ID,
			&i.ProjectID,
			&i.Name,
			&i.Url,
			&i.DocumentCategory,
			&i.ReviewStage,
			&i.Size,
			&i.Description,
			&i.IsActive,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
