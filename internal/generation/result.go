package generation

import (
	"github.com/escalateai/api/internal/complaint"
	"github.com/escalateai/api/internal/models"
	"github.com/google/uuid"
)

// NewRequestID returns a random (v4) identifier. Issued ids are not tracked.
func NewRequestID() string {
	return uuid.NewString()
}

// Assemble composes the result returned to the caller. Nil lists become
// empty lists so they encode as [].
func Assemble(id string, d *complaint.Drafts, placeholders []string) *models.GenerationResult {
	tips := append([]string{}, d.Tips...)
	if placeholders == nil {
		placeholders = []string{}
	}

	return &models.GenerationResult{
		RequestID:            id,
		WhatsAppMessage:      d.WhatsAppMessage,
		EmailSubject:         d.EmailSubject,
		EmailBody:            d.EmailBody,
		EscalationSubject:    d.EscalationSubject,
		EscalationBody:       d.EscalationBody,
		FollowupMessage:      d.FollowupMessage,
		Tips:                 tips,
		RequiredPlaceholders: placeholders,
	}
}
