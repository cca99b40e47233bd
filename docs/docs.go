// Package docs holds the OpenAPI description served at /docs.
// Keep it in sync with the handler annotations when endpoints change.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/generate": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["generation"],
                "summary": "Generate complaint drafts",
                "parameters": [
                    {
                        "description": "Complaint",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/models.ComplaintRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.GenerationResult"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/middleware.APIError"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/middleware.APIError"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/middleware.APIError"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Service health",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}}
                }
            }
        },
        "/health/deep": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Service health including optional dependencies",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.DeepHealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handlers.DeepHealthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.ComplaintRequest": {
            "type": "object",
            "required": ["category", "tone", "title", "description", "desired_resolution"],
            "properties": {
                "category": {
                    "type": "string",
                    "enum": ["college_hostel", "internet_network", "ecommerce_refund", "banking_upi", "rent_landlord", "workplace_hr", "courier_delivery", "hospital_billing"]
                },
                "tone": {"type": "string", "enum": ["polite", "firm", "strict"]},
                "title": {"type": "string", "minLength": 5, "maxLength": 200},
                "description": {"type": "string", "minLength": 20, "maxLength": 5000},
                "incident_date": {"type": "string"},
                "location": {"type": "string"},
                "company_or_institution": {"type": "string"},
                "recipient_name": {"type": "string"},
                "order_or_ticket_id": {"type": "string"},
                "desired_resolution": {"type": "string", "minLength": 5, "maxLength": 1000},
                "proof_available": {"type": "boolean"}
            }
        },
        "models.GenerationResult": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "whatsapp_message": {"type": "string"},
                "email_subject": {"type": "string"},
                "email_body": {"type": "string"},
                "escalation_subject": {"type": "string"},
                "escalation_body": {"type": "string"},
                "followup_message": {"type": "string"},
                "tips": {"type": "array", "items": {"type": "string"}},
                "required_placeholders": {"type": "array", "items": {"type": "string"}}
            }
        },
        "complaint.FieldError": {
            "type": "object",
            "properties": {
                "field": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "middleware.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "detail": {"type": "string"},
                "fields": {"type": "array", "items": {"$ref": "#/definitions/complaint.FieldError"}},
                "retry_after_ms": {"type": "integer"}
            }
        },
        "handlers.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["healthy", "degraded"]},
                "primary_model": {"type": "string"},
                "fallback_model": {"type": "string"},
                "api_key_configured": {"type": "boolean"}
            }
        },
        "handlers.DeepHealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["healthy", "degraded"]},
                "primary_model": {"type": "string"},
                "fallback_model": {"type": "string"},
                "api_key_configured": {"type": "boolean"},
                "dependencies": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "EscalateAI API",
	Description:      "Turns a structured complaint into ready-to-send messages, emails and follow-ups.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
