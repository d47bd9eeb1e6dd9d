package audit

import (
	"context"
	"time"

	id "worktrust/pkg/domain"
)

// EventCategory classifies audit events by retention and routing needs.
type EventCategory string

const (
	// CategoryCompliance covers credential lifecycle changes a relying party
	// may later need to reconstruct: issuance and revocation.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine verification activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	UserID    id.UserID     `json:"user_id"`
	// Subject is the record, credential or run the action applies to.
	Subject  string `json:"subject"`
	Action   string `json:"action"`
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`
	// RequestID is the correlation ID from the HTTP request context.
	RequestID string `json:"request_id,omitempty"`
	// ActorID is set when someone other than the user performed the action.
	ActorID string `json:"actor_id,omitempty"`
	// ClientIP and UserAgent describe the caller when the action came over HTTP.
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

type AuditEvent string

const (
	EventVerificationCompleted AuditEvent = "verification_completed"
	EventEarningsVerified      AuditEvent = "earnings_verified"
	EventReviewVerified        AuditEvent = "review_verified"
	EventCredentialIssued      AuditEvent = "credential_issued"
	EventCredentialRevoked     AuditEvent = "credential_revoked"
	EventBundleIssued          AuditEvent = "bundle_issued"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventCredentialIssued:  CategoryCompliance,
	EventCredentialRevoked: CategoryCompliance,
	EventBundleIssued:      CategoryCompliance,

	EventVerificationCompleted: CategoryOperations,
	EventEarningsVerified:      CategoryOperations,
	EventReviewVerified:        CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}
