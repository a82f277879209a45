package repository

import (
	"context"
	"time"

	"docufy/internal/model"
)

// DocumentRepository defines data access for document records using SQL
// queries only. The lifecycle rules (which transitions are legal, when the
// stamped rendition is written) live in the service layer, not here.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its document_id.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// FindByCode returns a document by its code_id lookup code.
	FindByCode(ctx context.Context, code string) (*model.Document, error)

	// List returns a paginated list of documents and the total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Document], error)

	// ListByStatus returns documents in the given status ordered by
	// submitted_at descending (most recent first). A non-positive Limit
	// returns the full snapshot.
	ListByStatus(ctx context.Context, status string, pq PageQuery) (*PageResult[model.Document], error)

	// UpdateStatus applies a status transition conditionally: the row is
	// only mutated while its current status equals expectedStatus. When the
	// guard fails (row gone, or another reviewer already moved it)
	// sql.ErrNoRows is returned and nothing is changed.
	UpdateStatus(ctx context.Context, id string, upd StatusUpdate, expectedStatus string) (*model.Document, error)
}

// StatusUpdate carries the fields mutated by a lifecycle transition.
// Nil pointers leave the corresponding column untouched.
type StatusUpdate struct {
	Status         string
	FilePath       *string
	VerifiedAt     *time.Time
	VerifiedBy     *string
	StampText      *string
	RejectedReason *string
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
