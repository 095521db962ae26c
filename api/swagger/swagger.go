package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Activity Log API",
        "description": "Records and browses the site activity log",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "tags": [
        {"name": "Authentication", "description": "Sign in and token issue"},
        {"name": "Events", "description": "Activity log listing, bulk actions and ingest"},
        {"name": "Users", "description": "Account management"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid login or password", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Too many attempts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events": {
            "get": {
                "tags": ["Events"],
                "summary": "List activity events",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "s", "in": "query", "type": "string"},
                    {"name": "from_date", "in": "query", "type": "string", "format": "date"},
                    {"name": "to_date", "in": "query", "type": "string", "format": "date"},
                    {"name": "filter_role", "in": "query", "type": "string"},
                    {"name": "filter_user", "in": "query", "type": "integer"},
                    {"name": "orderby", "in": "query", "type": "string", "enum": ["event_time", "severity", "event_type", "object_type"]},
                    {"name": "order", "in": "query", "type": "string", "enum": ["asc", "desc"]},
                    {"name": "paged", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid date", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/bulk": {
            "post": {
                "tags": ["Events"],
                "summary": "Apply a bulk action to events",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/posts": {
            "post": {
                "tags": ["Events"],
                "summary": "Record a post status change",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PostTransitionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Recorded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "204": {"description": "Transition not logged"}
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List users",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "role", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Users"],
                "summary": "Create user",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateUserRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Login or email taken", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users/{id}": {
            "get": {
                "tags": ["Users"],
                "summary": "Get user",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Users"],
                "summary": "Update user",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateUserRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Users"],
                "summary": "Delete user",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["login", "password"],
            "properties": {
                "login": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "BulkActionRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "example": "delete"},
                "id": {"type": "array", "items": {"type": "integer"}}
            }
        },
        "PostTransitionRequest": {
            "type": "object",
            "required": ["post_id", "new_status"],
            "properties": {
                "post_id": {"type": "integer"},
                "post_title": {"type": "string"},
                "post_type": {"type": "string"},
                "old_status": {"type": "string"},
                "new_status": {"type": "string"}
            }
        },
        "CreateUserRequest": {
            "type": "object",
            "required": ["login", "email", "roles", "password"],
            "properties": {
                "login": {"type": "string"},
                "email": {"type": "string"},
                "display_name": {"type": "string"},
                "roles": {"type": "array", "items": {"type": "string"}},
                "password": {"type": "string"}
            }
        },
        "UpdateUserRequest": {
            "type": "object",
            "required": ["email", "roles"],
            "properties": {
                "email": {"type": "string"},
                "display_name": {"type": "string"},
                "roles": {"type": "array", "items": {"type": "string"}}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "total_pages": {"type": "integer"}
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
