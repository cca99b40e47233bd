package models

import "time"

// Category is the grievance domain a complaint belongs to
type Category string

const (
	CategoryCollegeHostel   Category = "college_hostel"
	CategoryInternetNetwork Category = "internet_network"
	CategoryEcommerceRefund Category = "ecommerce_refund"
	CategoryBankingUPI      Category = "banking_upi"
	CategoryRentLandlord    Category = "rent_landlord"
	CategoryWorkplaceHR     Category = "workplace_hr"
	CategoryCourierDelivery Category = "courier_delivery"
	CategoryHospitalBilling Category = "hospital_billing"
)

// Categories lists every supported category in display order
var Categories = []Category{
	CategoryCollegeHostel,
	CategoryInternetNetwork,
	CategoryEcommerceRefund,
	CategoryBankingUPI,
	CategoryRentLandlord,
	CategoryWorkplaceHR,
	CategoryCourierDelivery,
	CategoryHospitalBilling,
}

// Tone is the register the drafts are written in
type Tone string

const (
	TonePolite Tone = "polite"
	ToneFirm   Tone = "firm"
	ToneStrict Tone = "strict"
)

// Tones lists every supported tone from mildest to strongest
var Tones = []Tone{TonePolite, ToneFirm, ToneStrict}

// ComplaintRequest is the structured grievance submitted by the user
type ComplaintRequest struct {
	Category Category `json:"category" validate:"required,oneof=college_hostel internet_network ecommerce_refund banking_upi rent_landlord workplace_hr courier_delivery hospital_billing"`
	Tone     Tone     `json:"tone" validate:"required,oneof=polite firm strict"`

	Title       string `json:"title" validate:"min=5,max=200"`
	Description string `json:"description" validate:"min=20,max=5000"`

	IncidentDate string `json:"incident_date,omitempty"`
	Location     string `json:"location,omitempty"`

	CompanyOrInstitution string `json:"company_or_institution,omitempty"`
	RecipientName        string `json:"recipient_name,omitempty"`
	OrderOrTicketID      string `json:"order_or_ticket_id,omitempty"`

	DesiredResolution string `json:"desired_resolution" validate:"min=5,max=1000"`
	ProofAvailable    bool   `json:"proof_available"`
}

// GenerationResult is the complete set of drafts returned to the caller
type GenerationResult struct {
	RequestID string `json:"request_id"`

	WhatsAppMessage   string `json:"whatsapp_message"`
	EmailSubject      string `json:"email_subject"`
	EmailBody         string `json:"email_body"`
	EscalationSubject string `json:"escalation_subject"`
	EscalationBody    string `json:"escalation_body"`
	FollowupMessage   string `json:"followup_message"`

	Tips                 []string `json:"tips"`
	RequiredPlaceholders []string `json:"required_placeholders"`
}

// GenerationEvent is published after a successful generation. It carries
// metadata only, never complaint text.
type GenerationEvent struct {
	RequestID        string    `json:"request_id"`
	Category         Category  `json:"category"`
	Tone             Tone      `json:"tone"`
	Backend          string    `json:"backend"`
	Model            string    `json:"model"`
	Attempts         int       `json:"attempts"`
	PlaceholderCount int       `json:"placeholder_count"`
	LatencyMs        int64     `json:"latency_ms"`
	Timestamp        time.Time `json:"timestamp"`
}
