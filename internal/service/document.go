package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docufy/internal/model"
	"docufy/internal/repository"
	"docufy/internal/stamp"
	"docufy/internal/storage"
)

var (
	ErrIDRequired     = errors.New("identifier is required")
	ErrUserIDRequired = errors.New("user id is required")
	ErrReaderNil      = errors.New("reader is nil")
	ErrNotFound       = errors.New("document not found")

	// ErrSourceUnavailable: the record exists but its current rendition could
	// not be read from the object store.
	ErrSourceUnavailable = errors.New("document source unavailable")

	// ErrStorageWriteFailed: the stamped rendition (or the record update that
	// commits it) could not be persisted. The original record and object are
	// untouched.
	ErrStorageWriteFailed = errors.New("storage write failed")

	// ErrInvalidTransition: approve/reject was called on a record that is no
	// longer pending. Re-review is not supported.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidStatus: a status value outside {pending, approved, rejected}.
	ErrInvalidStatus = errors.New("invalid status value")
)

// ErrUnsupportedType mirrors the stamping engine's sentinel so callers only
// need this package to classify lifecycle failures.
var ErrUnsupportedType = stamp.ErrUnsupportedType

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DocumentService is the sole authority for state transitions on document
// records. Each call is a short-lived, stateless request handler; the only
// state it keeps between calls is the persisted record.
type DocumentService interface {
	// Upload stores the content in the object store, creates a pending
	// record, and rolls back the object if the record insert fails.
	Upload(ctx context.Context, r io.Reader, in UploadInput) (*model.Document, error)

	// Get looks up a record by document_id or code_id and resolves a
	// time-limited access URL for its current rendition. Read-only.
	Get(ctx context.Context, identifier string) (*model.DocumentView, error)

	// List returns documents, optionally filtered by a wire status value,
	// using limit/offset and a total count.
	List(ctx context.Context, status string, limit, offset int) (*DocumentListResult, error)

	// ListPending returns the full snapshot of pending documents, most
	// recent submission first.
	ListPending(ctx context.Context) ([]model.Document, error)

	// Approve stamps the current rendition, writes it under a new object
	// name, and commits the Approved transition. An empty stampText uses the
	// configured default.
	Approve(ctx context.Context, identifier, stampText string) (*model.DocumentView, error)

	// Reject commits the Rejected transition. No file mutation occurs.
	Reject(ctx context.Context, identifier, reason string) (*model.DocumentView, error)

	// UpdateStatus dispatches a plain wire status value (pending, approved,
	// rejected) to the matching transition.
	UpdateStatus(ctx context.Context, identifier, status string) (*model.DocumentView, error)
}

// UploadInput describes one submission.
type UploadInput struct {
	FileName    string
	ContentType string
	Size        int64
	DocType     string
	UserID      string
}

// Options tune lifecycle behavior; zero values fall back to defaults.
type Options struct {
	SignedURLTTL     time.Duration
	DefaultStampText string
}

type documentService struct {
	store   storage.Storage
	repo    repository.DocumentRepository
	stamper stamp.Stamper
	opts    Options
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, stamper stamp.Stamper, opts Options) DocumentService {
	if opts.SignedURLTTL <= 0 {
		opts.SignedURLTTL = time.Hour
	}
	if opts.DefaultStampText == "" {
		opts.DefaultStampText = "APPROVED"
	}
	return &documentService{store: store, repo: repo, stamper: stamper, opts: opts}
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newCode returns the 6-character retrieval code printed on submission
// receipts; code_id is a secondary unique lookup key for the record.
func newCode() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b)
}

func (s *documentService) Upload(ctx context.Context, r io.Reader, in UploadInput) (*model.Document, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	if in.UserID == "" {
		return nil, ErrUserIDRequired
	}
	docType := in.DocType
	if docType == "" {
		docType = "additional"
	}

	now := time.Now().UTC()
	base := filepath.Base(in.FileName)
	key := path.Join(in.UserID, fmt.Sprintf("%d_%s", now.UnixMilli(), base))

	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: in.ContentType,
		Metadata: map[string]string{
			"original-filename": in.FileName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	doc := &model.Document{
		ID:          uuid.New().String(),
		CodeID:      newCode(),
		UserID:      in.UserID,
		DocType:     docType,
		FileName:    base,
		FilePath:    objInfo.Key,
		ContentType: in.ContentType,
		Size:        objInfo.Size,
		Status:      model.StatusPending,
		SubmittedAt: now,
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		// Rollback: delete the object from storage.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %w; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

// load resolves an identifier to a record: UUIDs look up document_id,
// anything else is treated as a code_id.
func (s *documentService) load(ctx context.Context, identifier string) (*model.Document, error) {
	if identifier == "" {
		return nil, ErrIDRequired
	}
	var (
		doc *model.Document
		err error
	)
	if _, uuidErr := uuid.Parse(identifier); uuidErr == nil {
		doc, err = s.repo.FindByID(ctx, identifier)
	} else {
		doc, err = s.repo.FindByCode(ctx, strings.ToUpper(identifier))
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) view(ctx context.Context, doc *model.Document) (*model.DocumentView, error) {
	u, err := s.store.PresignGet(ctx, doc.FilePath, s.opts.SignedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("presign document url: %w", err)
	}
	return &model.DocumentView{Document: *doc, FileURL: u}, nil
}

func (s *documentService) Get(ctx context.Context, identifier string) (*model.DocumentView, error) {
	doc, err := s.load(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, doc)
}

func (s *documentService) List(ctx context.Context, status string, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	pq := repository.PageQuery{Limit: limit, Offset: offset}

	var (
		res *repository.PageResult[model.Document]
		err error
	)
	if status != "" {
		st, ok := normalizeStatus(status)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
		}
		res, err = s.repo.ListByStatus(ctx, st, pq)
	} else {
		res, err = s.repo.List(ctx, pq)
	}
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *documentService) ListPending(ctx context.Context) ([]model.Document, error) {
	res, err := s.repo.ListByStatus(ctx, model.StatusPending, repository.PageQuery{})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (s *documentService) Approve(ctx context.Context, identifier, stampText string) (*model.DocumentView, error) {
	doc, err := s.load(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !doc.IsPending() {
		return nil, fmt.Errorf("%w: document is %s", ErrInvalidTransition, doc.Status)
	}
	if stampText == "" {
		stampText = s.opts.DefaultStampText
	}

	rc, _, err := s.store.Get(ctx, doc.FilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	stamped, err := s.stamper.Stamp(data, doc.ContentType, stampText)
	if err != nil {
		return nil, fmt.Errorf("stamp document: %w", err)
	}

	// Additive write: the original rendition is never overwritten in place.
	// A crash from here on leaves at worst an orphaned stamped object.
	newKey := stampedKey(doc.FilePath, time.Now().UTC())
	if _, err := s.store.Put(ctx, newKey, bytes.NewReader(stamped), storage.PutObjectOptions{
		Size:        int64(len(stamped)),
		ContentType: doc.ContentType,
		Metadata: map[string]string{
			"source-object": doc.FilePath,
		},
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
	}

	now := time.Now().UTC()
	updated, err := s.repo.UpdateStatus(ctx, doc.ID, repository.StatusUpdate{
		Status:     model.StatusApproved,
		FilePath:   &newKey,
		VerifiedAt: &now,
		StampText:  &stampText,
	}, model.StatusPending)
	if err != nil {
		// The stamped object is already durable; leave it orphaned rather
		// than deleting under a record another reviewer may have just moved.
		logOrphan(doc.ID, newKey, err)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: document is no longer pending", ErrInvalidTransition)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
	}
	return s.view(ctx, updated)
}

func (s *documentService) Reject(ctx context.Context, identifier, reason string) (*model.DocumentView, error) {
	doc, err := s.load(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !doc.IsPending() {
		return nil, fmt.Errorf("%w: document is %s", ErrInvalidTransition, doc.Status)
	}

	upd := repository.StatusUpdate{Status: model.StatusRejected}
	if reason != "" {
		upd.RejectedReason = &reason
	}
	updated, err := s.repo.UpdateStatus(ctx, doc.ID, upd, model.StatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: document is no longer pending", ErrInvalidTransition)
		}
		return nil, fmt.Errorf("reject document: %w", err)
	}
	return s.view(ctx, updated)
}

// UpdateStatus backs the review UI's plain status toggle. Approval runs the
// full stamping pipeline with the default stamp text; "pending" only echoes a
// record that is still pending.
func (s *documentService) UpdateStatus(ctx context.Context, identifier, status string) (*model.DocumentView, error) {
	st, ok := normalizeStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	switch st {
	case model.StatusApproved:
		return s.Approve(ctx, identifier, "")
	case model.StatusRejected:
		return s.Reject(ctx, identifier, "")
	default:
		doc, err := s.load(ctx, identifier)
		if err != nil {
			return nil, err
		}
		if !doc.IsPending() {
			return nil, fmt.Errorf("%w: cannot return to pending from %s", ErrInvalidTransition, doc.Status)
		}
		return s.view(ctx, doc)
	}
}

// stampedKey derives the additive object name for an approved rendition: the
// original filename prefixed with a millisecond timestamp, in the same
// directory as the source object.
func stampedKey(filePath string, now time.Time) string {
	dir, base := path.Split(filePath)
	return dir + fmt.Sprintf("%d_%s", now.UnixMilli(), base)
}

// normalizeStatus maps the lowercase wire values onto stored status values.
func normalizeStatus(v string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "pending":
		return model.StatusPending, true
	case "approved":
		return model.StatusApproved, true
	case "rejected":
		return model.StatusRejected, true
	}
	return "", false
}

func logOrphan(docID, key string, cause error) {
	entry := map[string]any{
		"ts":          time.Now().UTC().Format(time.RFC3339Nano),
		"level":       "error",
		"msg":         "stamped_object_orphaned",
		"document_id": docID,
		"object_key":  key,
		"error":       cause.Error(),
	}
	if b, err := json.Marshal(entry); err == nil {
		log.SetFlags(0)
		log.Println(string(b))
	}
}
