package complaint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPlaceholders(t *testing.T) {
	cases := []struct {
		name  string
		texts []string
		want  []string
	}{
		{"none", []string{"Dear team, please refund me.", ""}, []string{}},
		{"single", []string{"Order {{ORDER_ID}} is late."}, []string{"ORDER_ID"}},
		{"dedup across texts", []string{"{{DATE}} and {{ORDER_ID}}", "on {{DATE}}", "ref {{ORDER_ID}}"}, []string{"DATE", "ORDER_ID"}},
		{"sorted", []string{"{{RECIPIENT_NAME}} {{AMOUNT}} {{COMPANY_NAME}}"}, []string{"AMOUNT", "COMPANY_NAME", "RECIPIENT_NAME"}},
		{"digits and underscores", []string{"{{INVOICE_2}}"}, []string{"INVOICE_2"}},
		{"not tokens", []string{"{ORDER_ID}", "{{order_id}}", "{{ ORDER_ID }}", "{{}}", "{{_X}}", "[DATE]"}, []string{}},
		{"adjacent", []string{"{{DATE}}{{AMOUNT}}"}, []string{"AMOUNT", "DATE"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractPlaceholders(tc.texts...)
			assert.NotNil(t, got)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDraftsPlaceholders_OnlyScansBodies(t *testing.T) {
	d := &Drafts{
		WhatsAppMessage:   "Order {{ORDER_ID}} is late.",
		EmailSubject:      "Refund for {{AMOUNT}}",
		EmailBody:         "Please refund order {{ORDER_ID}}.",
		EscalationSubject: "Escalation {{DATE}}",
		EscalationBody:    "Escalating order {{ORDER_ID}}.",
		FollowupMessage:   "Following up.",
	}
	assert.Equal(t, []string{"ORDER_ID"}, d.Placeholders())
}
