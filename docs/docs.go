// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with: swag init -g cmd/ecourts/main.go
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
        "/jobs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "List jobs",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/httptransport.jobResp"}}}
                }
            },
            "post": {
                "description": "Validates the request, records a pending job and schedules it for background extraction.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Submit an extraction job",
                "parameters": [
                    {
                        "description": "kind is cnr (needs cnr) or causelist (needs state, district, complex)",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/httptransport.createJobDTO"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/httptransport.createJobResp"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        },
        "/jobs/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Get job by id",
                "parameters": [{"type": "string", "description": "job id (uuid)", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.jobResp"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        },
        "/jobs/{id}/result": {
            "get": {
                "description": "Returns cases_found for a CNR lookup or cause_list for a cause-list run.",
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Get job result",
                "parameters": [{"type": "string", "description": "job id (uuid)", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        },
        "/jobs/{id}/export.xlsx": {
            "get": {
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["jobs"],
                "summary": "Download job result as a spreadsheet",
                "parameters": [{"type": "string", "description": "job id (uuid)", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        },
        "/status/{id}": {
            "get": {
                "description": "Refreshes itself until the job is finished, then links the artifacts.",
                "produces": ["text/html"],
                "tags": ["jobs"],
                "summary": "Human-readable job status",
                "parameters": [{"type": "string", "description": "job id (uuid)", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "string"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        },
        "/outputs/{path}": {
            "get": {
                "description": "Serves a result document or PDF by its path relative to the output dir.",
                "tags": ["outputs"],
                "summary": "Download an artifact",
                "parameters": [{"type": "string", "description": "artifact path", "name": "path", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        },
        "/catalog/{state}/districts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Districts of a state, for dependent pickers",
                "parameters": [{"type": "string", "description": "state name", "name": "state", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        },
        "/catalog/{state}/{district}/complexes": {
            "get": {
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Court complexes of a district",
                "parameters": [
                    {"type": "string", "description": "state name", "name": "state", "in": "path", "required": true},
                    {"type": "string", "description": "district name", "name": "district", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        },
        "/catalog": {
            "get": {
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "States, districts and court complexes known to the service",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        }
    },
    "definitions": {
        "httptransport.apiError": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "httptransport.createJobDTO": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["cnr", "causelist"]},
                "cnr": {"type": "string"},
                "state": {"type": "string"},
                "district": {"type": "string"},
                "complex": {"type": "string"},
                "date": {"type": "string", "description": "YYYY-MM-DD, empty => today"},
                "download_pdf": {"type": "boolean"}
            }
        },
        "httptransport.createJobResp": {
            "type": "object",
            "properties": {"id": {"type": "string"}}
        },
        "httptransport.jobResp": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "kind": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "running", "completed", "failed"]},
                "request": {"type": "object", "additionalProperties": true},
                "submitted_at": {"type": "string"},
                "started_at": {"type": "string"},
                "finished_at": {"type": "string"},
                "output_file": {"type": "string"},
                "pdfs": {"type": "array", "items": {"type": "string"}},
                "error": {"type": "string"},
                "error_kind": {"type": "string", "enum": ["timeout", "site_error", "missing_output", "internal"]}
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
	Title:            "eCourts scraper API",
	Description:      "Submit CNR lookups and cause-list extractions, poll their status and fetch results.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
