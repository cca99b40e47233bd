package complaint

import (
	"fmt"
	"strings"

	"github.com/escalateai/api/internal/models"
)

// Prompt is the instruction payload sent to a generation backend
type Prompt struct {
	System string
	User   string
}

// Placeholder tokens the backend is told to use for facts it cannot infer
const (
	TokenDate          = "DATE"
	TokenOrderID       = "ORDER_ID"
	TokenAmount        = "AMOUNT"
	TokenLocation      = "LOCATION"
	TokenCompanyName   = "COMPANY_NAME"
	TokenRecipientName = "RECIPIENT_NAME"
)

// Token renders name in the placeholder syntax, e.g. {{ORDER_ID}}
func Token(name string) string {
	return "{{" + name + "}}"
}

const systemPrompt = `You are a professional complaint and escalation writing assistant.
You help users create clear, professional, and actionable complaints.

Guidelines:
1. Always maintain professionalism. Never generate abusive, threatening, or inappropriate content.
2. Structure content clearly with proper paragraphs and formatting.
3. Adapt the register to the requested tone:
   - polite: courteous, respectful, seeking cooperation
   - firm: direct, clear expectations, an explicit deadline for a response
   - strict: formal, demanding, indicating potential consequences (still professional, no threats)
4. Make complaints actionable with specific requests and deadlines.
5. Keep messages concise and readable. The messaging-app note must be short.
6. For escalations, emphasise urgency and reference the earlier complaint.
7. For follow-ups, be professional and reference the timeline.

Missing facts:
- Use ONLY facts given by the user. Never invent dates, amounts, names, reference numbers or places.
- When a fact is needed but not given, write a placeholder in double curly braces naming it in
  UPPER_SNAKE_CASE: {{DATE}}, {{ORDER_ID}}, {{AMOUNT}}, {{LOCATION}}, {{COMPANY_NAME}}, {{RECIPIENT_NAME}}.
- Keep a placeholder exactly as given when it appears in the input.

Output rules:
- Return ONLY a valid JSON object (no markdown fences, no commentary).
- The JSON keys must be exactly:
  whatsapp_message, email_subject, email_body, escalation_subject, escalation_body, followup_message, tips
- Every text value must be a non-empty string. tips must be an array of 2 to 4 short strings.`

var categoryFraming = map[models.Category]string{
	models.CategoryCollegeHostel: "This is a complaint to a college or hostel administration (warden, hostel office or dean of students). " +
		"Frame it around student welfare, facilities, safety and the institution's duty of care.",
	models.CategoryInternetNetwork: "This is a complaint to an internet or mobile network provider's customer support. " +
		"Frame it around service outages, speed, billing for undelivered service and the provider's service commitments.",
	models.CategoryEcommerceRefund: "This is a complaint to an online store or marketplace about an order or refund. " +
		"Frame it around the order reference, the amount paid, the return or cancellation and the seller's refund policy.",
	models.CategoryBankingUPI: "This is a complaint to a bank or payment app about a failed, duplicate or disputed transaction. " +
		"Frame it around the transaction reference, the amount, the date and the bank's grievance redressal process.",
	models.CategoryRentLandlord: "This is a complaint to a landlord or property manager. " +
		"Frame it around the rental agreement, the property address, repairs or deposit and the tenant's rights.",
	models.CategoryWorkplaceHR: "This is a complaint to a manager or the HR department. " +
		"Frame it around workplace policy, dates of incidents, their impact on work and a confidential resolution.",
	models.CategoryCourierDelivery: "This is a complaint to a courier or delivery company. " +
		"Frame it around the tracking or consignment number, the expected and actual delivery and the condition of the parcel.",
	models.CategoryHospitalBilling: "This is a complaint to a hospital's billing or patient services department. " +
		"Frame it around the bill or invoice reference, the disputed charges, the dates of treatment and a corrected statement.",
}

var toneInstructions = map[models.Tone]string{
	models.TonePolite: "Tone: polite. Be courteous and cooperative, assume good faith and ask for help resolving the issue.",
	models.ToneFirm: "Tone: firm. Be direct, state the expected resolution explicitly and ask for a response " +
		"within a specific deadline (for example 7 days).",
	models.ToneStrict: "Tone: strict. Be formal and demanding, cite the obligation that was breached and state the " +
		"consequences if unresolved (escalation to an ombudsman, consumer forum or regulator), without threats.",
}

// BuildPrompt renders the instruction payload for req. The output depends
// only on req.
func BuildPrompt(req models.ComplaintRequest) Prompt {
	var b strings.Builder

	b.WriteString("Generate professional complaint drafts for the following scenario.\n\n")
	b.WriteString(categoryFraming[req.Category])
	b.WriteString("\n")
	b.WriteString(toneInstructions[req.Tone])
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Category: %s\n", req.Category)
	fmt.Fprintf(&b, "Tone: %s\n\n", req.Tone)
	fmt.Fprintf(&b, "Title: %s\n", req.Title)
	fmt.Fprintf(&b, "Description: %s\n\n", req.Description)
	fmt.Fprintf(&b, "Incident Date: %s\n", orToken(req.IncidentDate, TokenDate))
	fmt.Fprintf(&b, "Location: %s\n", orToken(req.Location, TokenLocation))
	fmt.Fprintf(&b, "Company/Institution: %s\n", orToken(req.CompanyOrInstitution, TokenCompanyName))
	fmt.Fprintf(&b, "Recipient Name: %s\n", orToken(req.RecipientName, TokenRecipientName))
	fmt.Fprintf(&b, "Order/Ticket ID: %s\n", orToken(req.OrderOrTicketID, TokenOrderID))
	fmt.Fprintf(&b, "Desired Resolution: %s\n", req.DesiredResolution)
	fmt.Fprintf(&b, "Proof Available: %t\n\n", req.ProofAvailable)

	b.WriteString(`Return valid JSON with these keys:
1) whatsapp_message (short and clear)
2) email_subject
3) email_body
4) escalation_subject
5) escalation_body
6) followup_message
7) tips (2 to 4 short actionable tips)
`)

	return Prompt{System: systemPrompt, User: b.String()}
}

func orToken(value, token string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return Token(token)
}
