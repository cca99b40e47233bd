package complaint

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// Keys of the model output schema
const (
	FieldWhatsApp          = "whatsapp_message"
	FieldEmailSubject      = "email_subject"
	FieldEmailBody         = "email_body"
	FieldEscalationSubject = "escalation_subject"
	FieldEscalationBody    = "escalation_body"
	FieldFollowup          = "followup_message"
	FieldTips              = "tips"
)

var requiredTextFields = []string{
	FieldWhatsApp,
	FieldEmailSubject,
	FieldEmailBody,
	FieldEscalationSubject,
	FieldEscalationBody,
	FieldFollowup,
}

// DefaultTips are used when the backend omits the tip list
var DefaultTips = []string{
	"Review the message before sending.",
	"Keep proof documents ready (screenshots, receipts, emails).",
}

// RawModelOutput is the decoded but unvalidated backend answer
type RawModelOutput map[string]json.RawMessage

// Drafts is model output that passed the schema
type Drafts struct {
	WhatsAppMessage   string
	EmailSubject      string
	EmailBody         string
	EscalationSubject string
	EscalationBody    string
	FollowupMessage   string
	Tips              []string
}

// SchemaViolation reports why a backend answer was rejected
type SchemaViolation struct {
	Fields []FieldError
}

func (e *SchemaViolation) Error() string {
	return "schema violation: " + joinFields(e.Fields)
}

var (
	fenceOpen  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceClose = regexp.MustCompile("\\s*```$")
)

// DecodeModelText pulls the JSON object out of free model text. It tolerates
// markdown fences and chatter around the object.
func DecodeModelText(text string) (RawModelOutput, error) {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimSpace(fenceOpen.ReplaceAllString(t, ""))
		t = strings.TrimSpace(fenceClose.ReplaceAllString(t, ""))
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start == -1 || end <= start {
		return nil, &SchemaViolation{Fields: []FieldError{{Field: "response", Message: "no JSON object found in model output"}}}
	}

	var raw RawModelOutput
	if err := json.Unmarshal([]byte(t[start:end+1]), &raw); err != nil {
		return nil, &SchemaViolation{Fields: []FieldError{{Field: "response", Message: "malformed JSON: " + err.Error()}}}
	}
	return raw, nil
}

// ParseResponse forces raw into the closed Drafts schema. Unknown keys are
// ignored; every problem with required data is reported at once.
func ParseResponse(raw RawModelOutput) (*Drafts, error) {
	var violations []FieldError
	texts := make(map[string]string, len(requiredTextFields))

	for _, field := range requiredTextFields {
		value, msg := requiredString(raw, field)
		if msg != "" {
			violations = append(violations, FieldError{Field: field, Message: msg})
			continue
		}
		texts[field] = value
	}

	tips, msg := parseTips(raw[FieldTips])
	if msg != "" {
		violations = append(violations, FieldError{Field: FieldTips, Message: msg})
	}

	if len(violations) > 0 {
		return nil, &SchemaViolation{Fields: violations}
	}

	return &Drafts{
		WhatsAppMessage:   texts[FieldWhatsApp],
		EmailSubject:      texts[FieldEmailSubject],
		EmailBody:         texts[FieldEmailBody],
		EscalationSubject: texts[FieldEscalationSubject],
		EscalationBody:    texts[FieldEscalationBody],
		FollowupMessage:   texts[FieldFollowup],
		Tips:              tips,
	}, nil
}

func requiredString(raw RawModelOutput, field string) (string, string) {
	data, ok := raw[field]
	if !ok || isNull(data) {
		return "", "is missing"
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", "must be a string"
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "must not be empty"
	}
	return s, ""
}

func parseTips(data json.RawMessage) ([]string, string) {
	if len(data) == 0 || isNull(data) {
		return append([]string(nil), DefaultTips...), ""
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, "must be a list of strings"
	}

	tips := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return nil, "must contain only strings"
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, "must not contain empty tips"
		}
		tips = append(tips, s)
	}
	return tips, ""
}

func isNull(data json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
