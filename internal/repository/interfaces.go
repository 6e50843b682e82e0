// Package repository aggregates the storage ports the domain layer
// consumes, giving wiring code (cmd/fifoctl) one place to reference
// store contracts instead of reaching into internal/domain/change
// directly.
package repository

import "github.com/rpggio/fifoguard/internal/domain/change"

// ChangeRepository persists FieldChange records.
type ChangeRepository = change.ChangeStore

// ConflictRepository persists FieldConflict records.
type ConflictRepository = change.ConflictStore

// DocumentRepository is the step document the applier safe-merges into.
type DocumentRepository = change.DocumentStore

// AuditRepository persists AuditEntry records.
type AuditRepository = change.AuditStore
