package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"docufy/internal/model"
	"docufy/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const docColumns = `document_id, code_id, user_id, doc_type, file_name, file_path, content_type, size, status, submitted_at, verified_at, verified_by, stamp_text, rejected_reason`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d              model.Document
		verifiedAt     sql.NullTime
		verifiedBy     sql.NullString
		stampText      sql.NullString
		rejectedReason sql.NullString
	)
	if err := row.Scan(
		&d.ID,
		&d.CodeID,
		&d.UserID,
		&d.DocType,
		&d.FileName,
		&d.FilePath,
		&d.ContentType,
		&d.Size,
		&d.Status,
		&d.SubmittedAt,
		&verifiedAt,
		&verifiedBy,
		&stampText,
		&rejectedReason,
	); err != nil {
		return nil, err
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		d.VerifiedAt = &t
	}
	if verifiedBy.Valid {
		s := verifiedBy.String
		d.VerifiedBy = &s
	}
	if stampText.Valid {
		s := stampText.String
		d.StampText = &s
	}
	if rejectedReason.Valid {
		s := rejectedReason.String
		d.RejectedReason = &s
	}
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	q := `
		INSERT INTO documents (document_id, code_id, user_id, doc_type, file_name, file_path, content_type, size, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + docColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.CodeID,
		doc.UserID,
		doc.DocType,
		doc.FileName,
		doc.FilePath,
		doc.ContentType,
		doc.Size,
		doc.Status,
		doc.SubmittedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its document_id.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	q := `SELECT ` + docColumns + ` FROM documents WHERE document_id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// FindByCode fetches a single document by its code_id lookup code.
func (r *DocumentPostgres) FindByCode(ctx context.Context, code string) (*model.Document, error) {
	q := `SELECT ` + docColumns + ` FROM documents WHERE code_id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, code))
}

// List returns documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `SELECT COUNT(*) FROM documents`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	q := `SELECT ` + docColumns + ` FROM documents ORDER BY submitted_at DESC, document_id DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, q, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	return collectPage(rows, total)
}

// ListByStatus returns documents in the given status, newest submission first.
// A non-positive Limit returns the entire snapshot for that status.
func (r *DocumentPostgres) ListByStatus(ctx context.Context, status string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `SELECT COUNT(*) FROM documents WHERE status = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, status).Scan(&total); err != nil {
		return nil, err
	}

	var (
		rows *sql.Rows
		err  error
	)
	if pq.Limit > 0 {
		q := `SELECT ` + docColumns + ` FROM documents WHERE status = $1 ORDER BY submitted_at DESC, document_id DESC LIMIT $2 OFFSET $3`
		rows, err = r.db.QueryContext(ctx, q, status, pq.Limit, pq.Offset)
	} else {
		q := `SELECT ` + docColumns + ` FROM documents WHERE status = $1 ORDER BY submitted_at DESC, document_id DESC`
		rows, err = r.db.QueryContext(ctx, q, status)
	}
	if err != nil {
		return nil, err
	}
	return collectPage(rows, total)
}

// UpdateStatus mutates a row only while its status still equals expectedStatus.
// Nil fields in upd keep the current column value. sql.ErrNoRows signals that
// the guard failed and nothing was changed.
func (r *DocumentPostgres) UpdateStatus(ctx context.Context, id string, upd repository.StatusUpdate, expectedStatus string) (*model.Document, error) {
	q := `
		UPDATE documents
		SET status          = $2,
		    file_path       = COALESCE($3, file_path),
		    verified_at     = COALESCE($4, verified_at),
		    verified_by     = COALESCE($5, verified_by),
		    stamp_text      = COALESCE($6, stamp_text),
		    rejected_reason = COALESCE($7, rejected_reason)
		WHERE document_id = $1 AND status = $8
		RETURNING ` + docColumns
	row := r.db.QueryRowContext(ctx, q,
		id,
		upd.Status,
		upd.FilePath,
		upd.VerifiedAt,
		upd.VerifiedBy,
		upd.StampText,
		upd.RejectedReason,
		expectedStatus,
	)
	return scanDocument(row)
}

func collectPage(rows *sql.Rows, total int) (*repository.PageResult[model.Document], error) {
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.Document]{Items: items, Total: total}, nil
}
