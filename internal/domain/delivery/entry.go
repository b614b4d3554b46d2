// Package delivery holds the Delivery Log: one entry per channel per notified
// parent, mutated in place by retries.
package delivery

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"school_admin/internal/domain/errs"
)

// MaxAttempts caps channel attempts per entry. Entries at the cap are never retried.
const MaxAttempts = 3

// ClaimTimeout is how long an entry may stay in sending before a sweep takes it over.
const ClaimTimeout = 15 * time.Minute

var (
	ErrEntryNotFound = fmt.Errorf("delivery entry %w", errs.ErrNotFound)
	// ErrNotRetryable is returned for a manual retry of a sent or exhausted entry.
	ErrNotRetryable = fmt.Errorf("delivery entry is not retryable: %w", errs.ErrValidation)
	// ErrClaimLost is returned when an attempt outcome is written for an entry
	// that is no longer held by the caller's claim.
	ErrClaimLost = errors.New("delivery entry claim lost")
)

// Channel names the transport an entry was attempted on.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

// Template identifies which rendering mode produced the content.
type Template string

const (
	TemplateDailyNotes     Template = "daily_notes"
	TemplateIndividualNote Template = "individual_note"
	TemplatePersonal       Template = "personal_message"
)

type Status string

const (
	StatusQueued  Status = "queued"
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

type Entry struct {
	ID         int64          `db:"id"`
	BatchID    uuid.UUID      `db:"batch_id"`
	ParentID   sql.NullInt64  `db:"parent_id"`
	StudentID  sql.NullInt64  `db:"student_id"`
	Template   Template       `db:"template"`
	Channel    Channel        `db:"channel"`
	Content    string         `db:"content"`
	Status     Status         `db:"status"`
	ProviderID sql.NullString `db:"provider_id"`
	Attempts   int            `db:"attempts"`
	LastError  sql.NullString `db:"last_error"`
	SentAt     sql.NullTime   `db:"sent_at"`
	ClaimedAt  sql.NullTime   `db:"claimed_at"`
	CreatedAt  time.Time      `db:"created_at"`
}

// StatusLabel is the channel-qualified status, e.g. "sent_whatsapp".
func (e *Entry) StatusLabel() string {
	return fmt.Sprintf("%s_%s", e.Status, e.Channel)
}

// Retryable reports whether the retry sweep may pick this entry up.
func (e *Entry) Retryable() bool {
	return (e.Status == StatusQueued || e.Status == StatusFailed) && e.Attempts < MaxAttempts
}

// Claimable reports whether a runner may start a new attempt at now. An entry
// left in sending past ClaimTimeout belongs to a runner that died mid-send.
func (e *Entry) Claimable(now time.Time) bool {
	if e.Attempts >= MaxAttempts {
		return false
	}
	switch e.Status {
	case StatusQueued, StatusFailed:
		return true
	case StatusSending:
		return e.ClaimedAt.Valid && e.ClaimedAt.Time.Before(now.Add(-ClaimTimeout))
	}
	return false
}

// Claim starts an attempt: the attempt counts from here, whatever the outcome.
func (e *Entry) Claim(at time.Time) {
	e.Attempts++
	e.Status = StatusSending
	e.ClaimedAt = sql.NullTime{Time: at, Valid: true}
}

// Exhausted reports a terminal failure: the cap is reached without success.
func (e *Entry) Exhausted() bool {
	return e.Status == StatusFailed && e.Attempts >= MaxAttempts
}

// MarkSent records the outcome of a claimed attempt that succeeded.
func (e *Entry) MarkSent(providerID string, at time.Time) {
	e.Status = StatusSent
	e.LastError = sql.NullString{}
	e.SentAt = sql.NullTime{Time: at, Valid: true}
	if providerID != "" {
		e.ProviderID = sql.NullString{String: providerID, Valid: true}
	}
}

// MarkFailed records the outcome of a claimed attempt that failed.
func (e *Entry) MarkFailed(cause error) {
	e.Status = StatusFailed
	if cause != nil {
		e.LastError = sql.NullString{String: cause.Error(), Valid: true}
	}
}
