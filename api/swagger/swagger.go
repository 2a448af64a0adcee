package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "College Admin API",
        "description": "Multi-tenant administrative backend for colleges",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Authentication and session management"},
        {"name": "Invitations", "description": "Invitation-driven staff onboarding"},
        {"name": "Users", "description": "Account directory and alumni verification"},
        {"name": "Colleges", "description": "College profile management"},
        {"name": "Departments", "description": "Academic departments"},
        {"name": "Batches", "description": "Student batches and rosters"},
        {"name": "Subjects", "description": "Subject catalogue"},
        {"name": "Dashboard", "description": "College statistics"},
        {"name": "Exports", "description": "CSV and PDF data exports"},
        {"name": "Metrics", "description": "Runtime metrics"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Token pair", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "responses": {
                    "200": {"description": "New token pair", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid or revoked token"}
                }
            }
        },
        "/auth/register": {
            "post": {
                "tags": ["Auth"],
                "summary": "Self-register a student account",
                "responses": {
                    "201": {"description": "Account created"},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/verify-invitation/{token}": {
            "get": {
                "tags": ["Invitations"],
                "summary": "Inspect a pending invitation",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Invitation details"},
                    "404": {"description": "Unknown token"},
                    "409": {"description": "Already completed"},
                    "410": {"description": "Expired"}
                }
            }
        },
        "/auth/complete-registration": {
            "post": {
                "tags": ["Invitations"],
                "summary": "Redeem an invitation and activate the account",
                "responses": {
                    "200": {"description": "Account activated"},
                    "409": {"description": "Already redeemed"},
                    "410": {"description": "Expired"}
                }
            }
        },
        "/invitations": {
            "post": {
                "tags": ["Invitations"],
                "security": [{"BearerAuth": []}],
                "summary": "Issue a staff invitation",
                "responses": {
                    "201": {"description": "Invitation issued"},
                    "409": {"description": "Duplicate email or pending invitation"}
                }
            },
            "get": {
                "tags": ["Invitations"],
                "security": [{"BearerAuth": []}],
                "summary": "List invitations for the caller's college",
                "responses": {
                    "200": {"description": "Paginated invitations", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "security": [{"BearerAuth": []}],
                "summary": "List users",
                "parameters": [
                    {"name": "role", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Paginated users", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard/stats": {
            "get": {
                "tags": ["Dashboard"],
                "security": [{"BearerAuth": []}],
                "summary": "College dashboard statistics",
                "responses": {
                    "200": {"description": "Aggregated statistics", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
