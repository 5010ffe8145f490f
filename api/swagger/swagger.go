package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "DormFix API",
        "description": "Hostel maintenance requests with urgency prediction and duplicate detection",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Session cookie login and route decisions"},
        {"name": "Requests", "description": "Maintenance request intake and triage"},
        {"name": "Dashboard", "description": "Scoped request views with duplicate flags"},
        {"name": "Exports", "description": "CSV and PDF exports behind signed links"},
        {"name": "Catalog", "description": "Form vocabularies"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate and set the session cookie",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Clear the session cookie",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/session": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current session",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/route": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Decide whether a client path may be shown",
                "parameters": [
                    {"name": "path", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests": {
            "get": {
                "tags": ["Requests"],
                "summary": "List requests visible to the caller",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Requests"],
                "summary": "Submit a maintenance request",
                "consumes": ["application/json", "multipart/form-data"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRequestInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Classification failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Storage unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}": {
            "get": {
                "tags": ["Requests"],
                "summary": "Get a request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/status": {
            "patch": {
                "tags": ["Requests"],
                "summary": "Move a request along its lifecycle",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StatusUpdate"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Role dashboard",
                "parameters": [
                    {"name": "roomNumber", "in": "query", "type": "string"},
                    {"name": "hostelName", "in": "query", "type": "string"},
                    {"name": "floor", "in": "query", "type": "string"},
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "priority", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Export the dashboard view",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download an export",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/catalog": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Hostels, categories, priorities and statuses",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/catalog/categories": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Categories selectable for a hostel floor",
                "parameters": [
                    {"name": "hostelName", "in": "query", "type": "string"},
                    {"name": "floor", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
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
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["admin", "user", "student", "warden", "floor-incharge"]}
            }
        },
        "CreateRequestInput": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "registerNumber": {"type": "string"},
                "gender": {"type": "string", "enum": ["male", "female"]},
                "hostelName": {"type": "string"},
                "floor": {"type": "string"},
                "roomNumber": {"type": "string"},
                "category": {"type": "string"},
                "priority": {"type": "string", "enum": ["Low", "Medium", "High"]},
                "description": {"type": "string", "minLength": 10},
                "imageUrl": {"type": "string"}
            }
        },
        "StatusUpdate": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["Submitted", "Assigned", "In Progress", "Completed"]},
                "assignedTo": {"type": "string"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "roomNumber": {"type": "string"},
                "hostelName": {"type": "string"},
                "floor": {"type": "string"},
                "category": {"type": "string"},
                "priority": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "fields": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
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
