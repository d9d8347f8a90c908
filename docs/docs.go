// Package docs registers the OpenAPI description served at /swagger/*any.
// Regenerate with: swag init -g cmd/flightinfo/main.go -o docs
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
        "/airports": {
            "get": {
                "description": "Returns the airport reference table ordered by ICAO code.",
                "produces": ["application/json"],
                "tags": ["Airports"],
                "summary": "List airports",
                "operationId": "listAirports",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Airport"}}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/flights": {
            "get": {
                "description": "Returns every flight ordered by id.",
                "produces": ["application/json"],
                "tags": ["Flights"],
                "summary": "List flights",
                "operationId": "listFlights",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/services.FlightView"}}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Validates and stores a new flight and returns its id. A retry with the same Idempotency-Key returns the original id.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Flights"],
                "summary": "Create a flight",
                "operationId": "createFlight",
                "parameters": [
                    {"type": "string", "example": "ops-console", "description": "Client identifier scoping idempotency keys", "name": "X-Client-ID", "in": "header"},
                    {"type": "string", "example": "7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab", "description": "Idempotency key for safe retries (UUID recommended)", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Flight", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.SetFlightCommand"}}
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {"$ref": "#/definitions/handlers.IDResponse"},
                        "headers": {
                            "Idempotency-Replayed": {"type": "string", "description": "true when the id comes from an earlier request"},
                            "Location": {"type": "string", "description": "URL of the created flight"}
                        }
                    },
                    "400": {"description": "Validation or business rule failure", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/flights/search": {
            "get": {
                "description": "Filters flights by airline, by airport (code or name fragment on either end), and by a strict departure/arrival time window. Without any criteria every flight is returned.",
                "produces": ["application/json"],
                "tags": ["Flights"],
                "summary": "Search flights",
                "operationId": "searchFlights",
                "parameters": [
                    {"type": "string", "example": "Air New Zealand", "description": "Exact airline name", "name": "airline", "in": "query"},
                    {"type": "string", "example": "NZAA", "description": "Airport code or name fragment", "name": "airport", "in": "query"},
                    {"type": "string", "format": "date-time", "description": "Departure strictly after (RFC 3339)", "name": "fromDate", "in": "query"},
                    {"type": "string", "format": "date-time", "description": "Arrival strictly before (RFC 3339)", "name": "toDate", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/services.FlightView"}}},
                    "400": {"description": "Bad date", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/flights/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Flights"],
                "summary": "Get a flight",
                "operationId": "getFlight",
                "parameters": [
                    {"minimum": 1, "type": "integer", "description": "Flight ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.FlightView"}},
                    "404": {"description": "Flight not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "put": {
                "description": "Replaces every field of a flight. The body must carry the version returned by the last read; a stale version yields 409.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Flights"],
                "summary": "Replace a flight",
                "operationId": "updateFlight",
                "parameters": [
                    {"minimum": 1, "type": "integer", "description": "Flight ID", "name": "id", "in": "path", "required": true},
                    {"description": "Flight", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.SetFlightCommand"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.IDResponse"}},
                    "400": {"description": "Validation or business rule failure", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Flight not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Version conflict", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Flights"],
                "summary": "Delete a flight",
                "operationId": "deleteFlight",
                "parameters": [
                    {"minimum": 1, "type": "integer", "description": "Flight ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "format": "uuid", "description": "Version from the last read", "name": "version", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "string"}},
                    "400": {"description": "Bad id or version", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Flight not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Version conflict", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Airport": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "id": {"type": "integer"},
                "name": {"type": "string"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "not_found"},
                "details": {"type": "array", "items": {"type": "string"}, "example": ["Value must be 1 to 7 alphanumeric characters"]},
                "message": {"type": "string", "example": "resource not found"},
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"}
            }
        },
        "handlers.IDResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer", "example": 1}
            }
        },
        "services.FlightView": {
            "type": "object",
            "properties": {
                "airline": {"type": "string", "example": "Air New Zealand"},
                "arrivalAirport": {"type": "string", "example": "NZAA"},
                "arrivalTime": {"type": "string", "example": "2024-08-15T09:20:00Z"},
                "departureAirport": {"type": "string", "example": "NZPM"},
                "departureTime": {"type": "string", "example": "2024-08-15T08:20:00Z"},
                "flightNumber": {"type": "string", "example": "ANZ991"},
                "id": {"type": "integer", "example": 1},
                "status": {"type": "string", "example": "Landed"},
                "version": {"type": "string", "format": "uuid"}
            }
        },
        "services.SetFlightCommand": {
            "type": "object",
            "properties": {
                "airline": {"type": "string", "example": "Air New Zealand"},
                "arrivalAirport": {"type": "string", "example": "NZAA"},
                "arrivalTime": {"type": "string", "example": "2024-08-15T09:20:00Z"},
                "departureAirport": {"type": "string", "example": "NZPM"},
                "departureTime": {"type": "string", "example": "2024-08-15T08:20:00Z"},
                "flightNumber": {"type": "string", "example": "ANZ991"},
                "status": {"type": "string", "example": "Scheduled"},
                "version": {"type": "string", "format": "uuid"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "Flight Information API",
	Description:      "Flights between ICAO airports with version-guarded updates.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
