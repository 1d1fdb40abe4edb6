// Package remote abstracts the asynchronous, rate-limited record/blob store
// the backup client talks to.
//
// This package contains:
//   - Service interface: the minimal record-store surface consumed by the
//     vault client (save, delete, fetch with field selection, paginated
//     query, account probe)
//   - S3Service: production implementation over an S3-compatible object store
//   - MemoryService: scripted in-memory implementation for tests
package remote

import (
	"context"

	"github.com/vietddude/cloudvault/internal/core/domain"
)

// FieldScope controls which fields a fetch retrieves.
type FieldScope int

const (
	// ScopeMetadata fetches no payload fields; used for existence checks.
	ScopeMetadata FieldScope = iota
	// ScopeAllFields fetches every field including the payload blob.
	ScopeAllFields
)

// Cursor is an opaque, service-issued pagination continuation token.
// A nil *Cursor as query input means "first page"; a nil next cursor in the
// query result means "no more pages". The two are distinguished by call
// position, never by value.
type Cursor struct {
	Token string
}

// QueryResult is one page of a record-name enumeration.
type QueryResult struct {
	Names []string
	// Next is nil when this was the final page.
	Next *Cursor
}

// Service is the remote record store. Every method issues exactly one remote
// call; failures carry a *domain.ServiceError so callers can classify them.
// Implementations must be safe for concurrent use.
type Service interface {
	// SaveRecord stores the record, overwriting any record of the same name.
	SaveRecord(ctx context.Context, rec *domain.Record) error

	// DeleteRecord removes the named record. Deleting an absent record fails
	// with domain.CodeUnknownItem.
	DeleteRecord(ctx context.Context, name string) error

	// FetchRecord retrieves the named record with the given field scope.
	// An absent record fails with domain.CodeUnknownItem.
	FetchRecord(ctx context.Context, name string, scope FieldScope) (*domain.Record, error)

	// QueryRecordNames returns one page of record names of the given type,
	// starting at cursor (nil for the first page).
	QueryRecordNames(ctx context.Context, recordType domain.RecordType, cursor *Cursor) (*QueryResult, error)

	// AccountStatus probes the hosting account exactly once, without retry.
	AccountStatus(ctx context.Context) (domain.AccountStatus, error)
}
