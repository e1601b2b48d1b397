package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Substitution API",
        "description": "Substitute teacher matching and assignment",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Substitutes", "description": "Candidate search and ranking"},
        {"name": "Substitutions", "description": "Vacancy lifecycle"},
        {"name": "Teachers", "description": "Per-teacher reliability, caps and leave"},
        {"name": "Ops", "description": "Health and metrics"}
    ],
    "paths": {
        "/substitutes/available": {
            "get": {
                "tags": ["Substitutes"],
                "summary": "Teachers free for a lesson window",
                "parameters": [
                    {"name": "date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "start_time", "in": "query", "required": true, "type": "string"},
                    {"name": "end_time", "in": "query", "required": true, "type": "string"},
                    {"name": "subject_id", "in": "query", "type": "string"},
                    {"name": "class_id", "in": "query", "type": "string"},
                    {"name": "exclude_teacher_id", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid window", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown subject, class or teacher", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/substitutes/best": {
            "post": {
                "tags": ["Substitutes"],
                "summary": "Ranked recommendation without committing",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BestSubstituteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/BestSubstituteResult"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown subject, class or teacher", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/substitutions": {
            "get": {
                "tags": ["Substitutions"],
                "summary": "List substitutions",
                "parameters": [
                    {"name": "teacher_id", "in": "query", "type": "string"},
                    {"name": "date", "in": "query", "type": "string", "format": "date"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["pending", "confirmed", "completed", "declined"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Substitutions"],
                "summary": "Open a pending vacancy",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSubstitutionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/substitutions/{id}": {
            "get": {
                "tags": ["Substitutions"],
                "summary": "Get a substitution",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/substitutions/{id}/auto-assign": {
            "post": {
                "tags": ["Substitutions"],
                "summary": "Assign the best qualifying candidate",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/AutoAssignResult"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already resolved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Persistence failure, retryable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/substitutions/{id}/assign": {
            "post": {
                "tags": ["Substitutions"],
                "summary": "Assign a chosen teacher",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignSubstitutionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Schedule conflict or already resolved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/substitutions/{id}/decline": {
            "post": {
                "tags": ["Substitutions"],
                "summary": "Decline a substitution",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/DeclineSubstitutionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already resolved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/substitutions/{id}/complete": {
            "post": {
                "tags": ["Substitutions"],
                "summary": "Complete a confirmed substitution",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/CompleteSubstitutionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not confirmed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/substitutions/{id}/rematch": {
            "post": {
                "tags": ["Substitutions"],
                "summary": "Reopen a declined vacancy",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not declined", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/substitution-performance": {
            "get": {
                "tags": ["Teachers"],
                "summary": "Substitution reliability for a teacher",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "months", "in": "query", "type": "integer", "minimum": 1, "maximum": 60}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/substitution-stats": {
            "get": {
                "tags": ["Teachers"],
                "summary": "All-time substitution counts for a teacher",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/substitution-caps": {
            "get": {
                "tags": ["Teachers"],
                "summary": "Effective substitution caps",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Teachers"],
                "summary": "Override substitution caps, zero restores the default",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertCapsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/absences": {
            "post": {
                "tags": ["Teachers"],
                "summary": "Record leave",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAbsenceRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "BestSubstituteRequest": {
            "type": "object",
            "required": ["date", "start_time", "end_time"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "start_time": {"type": "string", "example": "08:00"},
                "end_time": {"type": "string", "example": "09:00"},
                "subject_id": {"type": "string"},
                "class_id": {"type": "string"},
                "original_teacher_id": {"type": "string"},
                "priority_level": {"type": "string", "enum": ["low", "normal", "high", "urgent"]},
                "backup_count": {"type": "integer", "minimum": 0, "maximum": 10}
            }
        },
        "CreateSubstitutionRequest": {
            "type": "object",
            "required": ["date", "start_time", "end_time"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "subject_id": {"type": "string"},
                "class_id": {"type": "string"},
                "original_teacher_id": {"type": "string"},
                "priority_level": {"type": "string", "enum": ["low", "normal", "high", "urgent"]},
                "reason": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "AssignSubstitutionRequest": {
            "type": "object",
            "required": ["teacher_id"],
            "properties": {
                "teacher_id": {"type": "string"},
                "emergency": {"type": "boolean"},
                "notes": {"type": "string"}
            }
        },
        "DeclineSubstitutionRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "CompleteSubstitutionRequest": {
            "type": "object",
            "properties": {
                "rating": {"type": "integer", "minimum": 1, "maximum": 5}
            }
        },
        "UpsertCapsRequest": {
            "type": "object",
            "properties": {
                "max_substitutions_per_day": {"type": "integer", "minimum": 0, "maximum": 10},
                "max_substitutions_per_week": {"type": "integer", "minimum": 0, "maximum": 50}
            }
        },
        "CreateAbsenceRequest": {
            "type": "object",
            "required": ["date"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "status": {"type": "string", "enum": ["pending", "approved", "rejected"]},
                "recurrence": {"type": "string", "example": "FREQ=WEEKLY;BYDAY=FR"},
                "reason": {"type": "string"}
            }
        },
        "CandidateScore": {
            "type": "object",
            "properties": {
                "teacher": {"type": "object"},
                "confidence_score": {"type": "number"},
                "reliability_score": {"type": "integer"},
                "match_reasons": {"type": "array", "items": {"type": "string"}}
            }
        },
        "BestSubstituteResult": {
            "type": "object",
            "properties": {
                "primary_substitute": {"$ref": "#/definitions/CandidateScore"},
                "backup_substitutes": {"type": "array", "items": {"$ref": "#/definitions/CandidateScore"}},
                "emergency_options": {"type": "array", "items": {"$ref": "#/definitions/CandidateScore"}},
                "matching_strategy": {"type": "string", "enum": ["optimal", "best_available", "emergency"]},
                "confidence_score": {"type": "number"},
                "recommendations": {"type": "array", "items": {"type": "string"}}
            }
        },
        "AutoAssignResult": {
            "type": "object",
            "properties": {
                "substitution": {"type": "object"},
                "assigned_teacher": {"type": "object"},
                "matching_strategy": {"type": "string"},
                "confidence_score": {"type": "number"},
                "emergency_options": {"type": "array", "items": {"$ref": "#/definitions/CandidateScore"}},
                "skipped": {"type": "array", "items": {"type": "object"}}
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
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
