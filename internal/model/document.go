package model

import "time"

// Package model contains the canonical document record shared across layers.
// No database tags, no business logic.

// Document statuses. The lifecycle is forward-only: a pending document is
// approved or rejected exactly once and both outcomes are terminal.
const (
	StatusPending  = "pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// Document is the single record shape for an uploaded file under review.
// Every layer (HTTP, service, repository) works with this one type instead of
// per-call-site variants.
type Document struct {
	ID             string     `json:"document_id"`
	CodeID         string     `json:"code_id"`
	UserID         string     `json:"user_id"`
	DocType        string     `json:"doc_type"`
	FileName       string     `json:"file_name"`
	FilePath       string     `json:"file_path"`
	ContentType    string     `json:"content_type"`
	Size           int64      `json:"size"`
	Status         string     `json:"status"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`
	VerifiedBy     *string    `json:"verified_by,omitempty"`
	StampText      *string    `json:"stamp_text,omitempty"`
	RejectedReason *string    `json:"rejected_reason,omitempty"`
}

// IsPending reports whether the document is still awaiting review.
func (d *Document) IsPending() bool {
	return d.Status == StatusPending
}

// DocumentView is the read-only shape handed to the review and upload UIs:
// the record plus a time-limited download URL for its current rendition.
type DocumentView struct {
	Document
	FileURL string `json:"file_url"`
}
