package domain

import "time"

type AuditType string

const (
	AuditAuthentication AuditType = "authentication"
	AuditAuthorization  AuditType = "authorization"
	AuditLogout         AuditType = "logout"
)

type AuditOutcome string

const (
	AuditSuccess AuditOutcome = "success"
	AuditFailure AuditOutcome = "failure"
)

// AuditEvent is one entry of the authentication audit trail.
type AuditEvent struct {
	Type      AuditType    `json:"type"`
	Outcome   AuditOutcome `json:"outcome"`
	IP        string       `json:"ip"`
	Method    string       `json:"method"`
	Path      string       `json:"path"`
	RequestID string       `json:"requestId,omitempty"`
	UserID    string       `json:"userId,omitempty"`
	Email     string       `json:"email,omitempty"`
	Role      Role         `json:"role,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}
