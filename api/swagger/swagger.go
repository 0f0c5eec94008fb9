package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "University Presentation Scheduling API",
        "description": "Booking, availability, and reschedule workflows for student presentations",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Presentations", "description": "Presentation booking and lookup"},
        {"name": "Availability", "description": "Resource conflict checks and free windows"},
        {"name": "Suggestions", "description": "Best-date and slot suggestion search"},
        {"name": "Reschedules", "description": "Reschedule request workflow"},
        {"name": "Timetables", "description": "Weekly group timetables and lecture displacement"}
    ],
    "paths": {
        "/presentations": {
            "get": {
                "tags": ["Presentations"],
                "summary": "List presentations",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "venue_id", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Presentations"],
                "summary": "Book a presentation",
                "description": "Date and start time are optional. A missing date resolves to the least-loaded date over the horizon; a missing start to the earliest continuous run of free time on that date. A conflicting request returns 200 with scheduled=false rather than an error.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePresentationRequest"}}
                ],
                "responses": {
                    "200": {"description": "Conflict outcome", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "201": {"description": "Scheduled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/presentations/{id}": {
            "get": {
                "tags": ["Presentations"],
                "summary": "Get a presentation",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Presentations"],
                "summary": "Move a presentation to a new slot",
                "description": "Re-checks the target slot against the presentation's current participants before applying the move. A taken slot returns scheduled=false with the conflict reason.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"date": {"type": "string"}, "time_range": {"$ref": "#/definitions/TimeRange"}, "venue_id": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "Outcome", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Presentations"],
                "summary": "Cancel a presentation",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/examiners/{id}/presentations": {
            "get": {
                "tags": ["Presentations"],
                "summary": "List an examiner's presentations",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/presentations": {
            "get": {
                "tags": ["Presentations"],
                "summary": "List a student's presentations",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability/check": {
            "post": {
                "tags": ["Availability"],
                "summary": "Check a slot against venue, examiner, and student calendars",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability/free-windows": {
            "get": {
                "tags": ["Availability"],
                "summary": "List a venue's time windows for a date",
                "parameters": [
                    {"name": "date", "in": "query", "required": true, "type": "string"},
                    {"name": "venue_id", "in": "query", "required": true, "type": "string"},
                    {"name": "granularity", "in": "query", "type": "integer", "default": 60}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/suggestions/best-date": {
            "get": {
                "tags": ["Suggestions"],
                "summary": "Pick the least-loaded date over the horizon",
                "parameters": [
                    {"name": "examiner_ids", "in": "query", "type": "string", "description": "Comma-separated examiner ids; weighs their lecture load instead of booking counts"},
                    {"name": "offset_days", "in": "query", "type": "integer", "default": 1, "description": "Days from today the scan starts"},
                    {"name": "horizon_days", "in": "query", "type": "integer", "default": 14, "description": "Number of dates scanned"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/suggestions/slot": {
            "post": {
                "tags": ["Suggestions"],
                "summary": "Suggest a slot on the least-loaded date for the students' department",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SuggestionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No slot in horizon", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/presentations/{id}/reschedule-suggestion": {
            "get": {
                "tags": ["Suggestions"],
                "summary": "Suggest a replacement slot for an existing presentation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No slot in horizon", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reschedule-requests": {
            "get": {
                "tags": ["Reschedules"],
                "summary": "List reschedule requests",
                "parameters": [{"name": "status", "in": "query", "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Reschedules"],
                "summary": "File a reschedule request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRescheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reschedule-requests/{id}/resolve": {
            "post": {
                "tags": ["Reschedules"],
                "summary": "Approve or reject a pending request",
                "description": "An approval whose requested slot has been taken since submission flips to a rejection; the body reports the conflicts.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"action": {"type": "string", "enum": ["Approve", "Reject"]}}}}
                ],
                "responses": {
                    "200": {"description": "Resolved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already resolved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reschedule-requests/{id}": {
            "delete": {
                "tags": ["Reschedules"],
                "summary": "Delete a reschedule request",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/reschedule-requests/purge": {
            "post": {
                "tags": ["Reschedules"],
                "summary": "Purge old rejected requests",
                "parameters": [{"name": "older_than", "in": "query", "type": "string", "default": "48h"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users/{id}/reschedule-requests": {
            "get": {
                "tags": ["Reschedules"],
                "summary": "List a user's reschedule requests",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users/{id}/reschedule-requests/approved": {
            "delete": {
                "tags": ["Reschedules"],
                "summary": "Delete a user's approved reschedule requests",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users/{id}/reschedule-requests/rejected": {
            "delete": {
                "tags": ["Reschedules"],
                "summary": "Delete a user's rejected reschedule requests",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List timetables",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Timetables"],
                "summary": "Register a group's weekly timetable",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Get a timetable",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Timetables"],
                "summary": "Delete a timetable",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/timetables/{id}/slots": {
            "put": {
                "tags": ["Timetables"],
                "summary": "Replace a timetable's slots",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/groups/{id}/timetable": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Get a group's timetable",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/groups/{id}/free-time": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List a group's free hour blocks on a weekday",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "day", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lecturers/{id}/displacements": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List a lecturer's displacement history",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "TimeRange": {
            "type": "object",
            "properties": {
                "start_time": {"type": "string", "example": "09:00"},
                "end_time": {"type": "string", "example": "10:30"}
            }
        },
        "CreatePresentationRequest": {
            "type": "object",
            "required": ["title", "department", "venue_id", "duration_minutes", "student_ids", "examiner_ids"],
            "properties": {
                "title": {"type": "string"},
                "department": {"type": "string"},
                "venue_id": {"type": "string"},
                "date": {"type": "string", "example": "2026-09-07"},
                "start_time": {"type": "string", "example": "09:00"},
                "duration_minutes": {"type": "integer", "example": 90},
                "student_ids": {"type": "array", "items": {"type": "string"}},
                "examiner_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "AvailabilityRequest": {
            "type": "object",
            "required": ["date"],
            "properties": {
                "date": {"type": "string", "example": "2026-09-07"},
                "start_time": {"type": "string", "example": "09:00"},
                "end_time": {"type": "string", "example": "10:00"},
                "venue_id": {"type": "string"},
                "examiner_ids": {"type": "array", "items": {"type": "string"}},
                "student_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "SuggestionRequest": {
            "type": "object",
            "required": ["duration_minutes", "num_examiners", "student_ids"],
            "properties": {
                "duration_minutes": {"type": "integer"},
                "num_examiners": {"type": "integer"},
                "student_ids": {"type": "array", "items": {"type": "string"}, "description": "The first student's department selects the examiner pool"}
            }
        },
        "SubmitRescheduleRequest": {
            "type": "object",
            "required": ["presentation_id", "requested_by_id", "requested_by_role", "requested_date", "requested_start", "requested_end"],
            "properties": {
                "presentation_id": {"type": "string"},
                "requested_by_id": {"type": "string"},
                "requested_by_role": {"type": "string", "enum": ["student", "examiner"]},
                "requestor_email": {"type": "string"},
                "requested_date": {"type": "string", "example": "2026-09-10"},
                "requested_start": {"type": "string", "example": "14:00"},
                "requested_end": {"type": "string", "example": "15:00"},
                "requested_venue": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "CreateTimetableRequest": {
            "type": "object",
            "required": ["group_id", "slots"],
            "properties": {
                "group_id": {"type": "string"},
                "slots": {"type": "array", "items": {"type": "object"}}
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
