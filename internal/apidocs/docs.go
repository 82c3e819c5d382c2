// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

// Package apidocs registers the OpenAPI 2.0 document served at /swagger/*.
// It follows the layout swag init generates from the handler annotations.
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "GitHub Repository",
            "url": "https://github.com/tomtom215/rendezvous"
        },
        "license": {
            "name": "AGPL-3.0-or-later",
            "url": "https://www.gnu.org/licenses/agpl-3.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Core"],
                "summary": "Get relay health status",
                "responses": {
                    "200": {"description": "Health status retrieved successfully", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/health/live": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Core"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "Service is alive", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/health/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Core"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "Service is ready", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "503": {"description": "Service is not ready", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/ws": {
            "get": {
                "tags": ["Presence"],
                "summary": "Presence channel",
                "description": "Upgrades to a WebSocket carrying {\"type\",\"data\"} frames.",
                "responses": {
                    "101": {"description": "Switching protocols"},
                    "503": {"description": "Hub unavailable", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/resolve-map-link": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Maps"],
                "summary": "Resolve a map link",
                "parameters": [
                    {"type": "string", "description": "Map link, short or long", "name": "url", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Coordinates"}},
                    "400": {"description": "URL required", "schema": {"$ref": "#/definitions/api.mapLinkError"}},
                    "404": {"description": "Coordinates not found in URL", "schema": {"$ref": "#/definitions/api.mapLinkError"}},
                    "500": {"description": "Failed to resolve link", "schema": {"$ref": "#/definitions/api.mapLinkError"}}
                }
            }
        },
        "/api/v1/transactions": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Transactions"],
                "summary": "Create a transaction",
                "parameters": [
                    {"description": "Listing", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/transaction.CreateRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "503": {"description": "No free code", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/api/v1/transactions/{code}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Transactions"],
                "summary": "Look up a transaction",
                "parameters": [
                    {"type": "string", "description": "Transaction code, case-insensitive", "name": "code", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "Unknown code", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/api/v1/rooms/{code}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Rooms"],
                "summary": "Get a room snapshot",
                "parameters": [
                    {"type": "string", "description": "Room code", "name": "code", "in": "path", "required": true},
                    {"type": "string", "description": "Member id to leave out of locations", "name": "exclude", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "Room has no state", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Rooms"],
                "summary": "Delete a room",
                "parameters": [
                    {"type": "string", "description": "Room code", "name": "code", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "Room has no state", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/api/v1/rooms/{code}/locations": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Rooms"],
                "summary": "Get room locations",
                "parameters": [
                    {"type": "string", "description": "Room code", "name": "code", "in": "path", "required": true},
                    {"type": "string", "description": "Member id to leave out", "name": "exclude", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/api/v1/rooms/{code}/locations/stream": {
            "get": {
                "produces": ["text/event-stream"],
                "tags": ["Rooms"],
                "summary": "Stream room locations",
                "parameters": [
                    {"type": "string", "description": "Room code", "name": "code", "in": "path", "required": true},
                    {"type": "string", "description": "Member id to leave out", "name": "exclude", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/rooms/{code}/locations/{member}": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Rooms"],
                "summary": "Report a location",
                "parameters": [
                    {"type": "string", "description": "Room code", "name": "code", "in": "path", "required": true},
                    {"type": "string", "description": "Member id", "name": "member", "in": "path", "required": true},
                    {"description": "Position", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.LocationWrite"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/api/v1/rooms/{code}/meeting-point": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Rooms"],
                "summary": "Get the meeting point",
                "parameters": [
                    {"type": "string", "description": "Room code", "name": "code", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Rooms"],
                "summary": "Set the meeting point",
                "parameters": [
                    {"type": "string", "description": "Room code", "name": "code", "in": "path", "required": true},
                    {"description": "Seller role and coordinates", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.MeetingPointWrite"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "403": {"description": "Not the seller", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "409": {"description": "Meeting point already set; begin picking first", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/api/v1/rooms/{code}/meeting-point/picking": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Rooms"],
                "summary": "Begin picking a meeting point",
                "parameters": [
                    {"type": "string", "description": "Room code", "name": "code", "in": "path", "required": true},
                    {"description": "Seller role", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.PickingWrite"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "403": {"description": "Not the seller", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/api/v1/geocode": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Maps"],
                "summary": "Search a place",
                "parameters": [
                    {"type": "string", "description": "Place name or address", "name": "q", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "400": {"description": "Query required", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "No results", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "502": {"description": "Upstream failure", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "503": {"description": "Geocoding disabled or breaker open", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.LocationWrite": {
            "type": "object",
            "required": ["latitude", "longitude"],
            "properties": {
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "role": {"type": "string"},
                "timestamp": {"type": "integer"},
                "username": {"type": "string"}
            }
        },
        "api.MeetingPointWrite": {
            "type": "object",
            "required": ["latitude", "longitude"],
            "properties": {
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "role": {"type": "string"}
            }
        },
        "api.PickingWrite": {
            "type": "object",
            "properties": {
                "role": {"type": "string"}
            }
        },
        "api.mapLinkError": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        },
        "models.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {"type": "object", "additionalProperties": true},
                "message": {"type": "string"}
            }
        },
        "models.APIResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"$ref": "#/definitions/models.APIError"},
                "metadata": {"$ref": "#/definitions/models.Metadata"},
                "status": {"type": "string"}
            }
        },
        "models.Coordinates": {
            "type": "object",
            "properties": {
                "latitude": {"type": "number"},
                "longitude": {"type": "number"}
            }
        },
        "models.Metadata": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "transaction.CreateRequest": {
            "type": "object",
            "required": ["itemImage", "itemName", "phone", "username"],
            "properties": {
                "itemImage": {"type": "string"},
                "itemName": {"type": "string"},
                "mapLink": {"type": "string"},
                "phone": {"type": "string"},
                "username": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Rendezvous API",
	Description:      "Meeting coordination relay for buyers and sellers: transactions, room state, live locations and meeting-point negotiation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
