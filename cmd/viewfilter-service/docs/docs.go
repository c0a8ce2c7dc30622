// Package docs holds the OpenAPI description served at /swagger.
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
        "/views/{id}/filters": {
            "get": {
                "description": "Returns the field catalog, the current rules in editor shape and the help text",
                "produces": ["application/json"],
                "tags": ["view-filters"],
                "summary": "Get the filter editor payload of a view",
                "parameters": [
                    {"type": "string", "description": "View ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Current user ID", "name": "X-User-ID", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/viewfilter.EditorPayload"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            },
            "put": {
                "description": "Converts the edited rules to storage shape and replaces the stored rule set",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["view-filters"],
                "summary": "Replace the filters of a view",
                "parameters": [
                    {"type": "string", "description": "View ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Current user ID", "name": "X-User-ID", "in": "header"},
                    {"description": "Edited rules", "name": "filters", "in": "body", "required": true, "schema": {"$ref": "#/definitions/rules.EditorRuleSet"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/viewfilter.SaveResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/views/{id}/criteria": {
            "post": {
                "description": "Appends the view's resolved rules to the base criteria. Failures return the base unchanged.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["view-filters"],
                "summary": "Compile search criteria for a view",
                "parameters": [
                    {"type": "string", "description": "View ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Current user ID", "name": "X-User-ID", "in": "header"},
                    {"description": "Base criteria", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/viewfilter.CriteriaRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/viewfilter.CriteriaResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/views/{id}/audit": {
            "get": {
                "produces": ["application/json"],
                "tags": ["view-filters"],
                "summary": "Get the filter change history of a view",
                "parameters": [
                    {"type": "string", "description": "View ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Maximum number of entries", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/viewfilter.AuditLog"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "errors.ErrorResponse": {
            "type": "object",
            "properties": {
                "details": {"type": "object", "additionalProperties": true},
                "error": {"type": "string"},
                "error_code": {"type": "string"}
            }
        },
        "rules.CatalogEntry": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "operators": {"type": "array", "items": {"type": "string"}},
                "text": {"type": "string"},
                "values": {"type": "array", "items": {"$ref": "#/definitions/rules.CatalogOption"}}
            }
        },
        "rules.CatalogOption": {
            "type": "object",
            "properties": {
                "text": {"type": "string"},
                "value": {"type": "string"}
            }
        },
        "rules.Criteria": {
            "type": "object",
            "properties": {
                "end_date": {"type": "string"},
                "field_filters": {"$ref": "#/definitions/rules.FieldFilters"},
                "paging": {"$ref": "#/definitions/rules.Paging"},
                "sorting": {"$ref": "#/definitions/rules.Sorting"},
                "start_date": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "rules.EditorRule": {
            "type": "object",
            "properties": {
                "field": {"type": "string"},
                "operator": {"type": "string"},
                "value": {"type": "string"}
            }
        },
        "rules.EditorRuleSet": {
            "type": "object",
            "properties": {
                "filters": {"type": "array", "items": {"$ref": "#/definitions/rules.EditorRule"}},
                "mode": {"type": "string", "enum": ["all", "any"]}
            }
        },
        "rules.FieldFilters": {
            "type": "object",
            "properties": {
                "list": {"type": "array", "items": {"$ref": "#/definitions/rules.ResolvedRule"}},
                "mode": {"type": "string", "enum": ["all", "any"]}
            }
        },
        "rules.Paging": {
            "type": "object",
            "properties": {
                "offset": {"type": "integer"},
                "page_size": {"type": "integer"}
            }
        },
        "rules.ResolvedRule": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "operator": {"type": "string"},
                "value": {}
            }
        },
        "rules.Sorting": {
            "type": "object",
            "properties": {
                "direction": {"type": "string"},
                "key": {"type": "string"}
            }
        },
        "viewfilter.AuditLog": {
            "type": "object",
            "properties": {
                "action": {"type": "string"},
                "changed_at": {"type": "string"},
                "changed_by": {"type": "string"},
                "id": {"type": "string"},
                "new_value": {"type": "string"},
                "old_value": {"type": "string"},
                "view_id": {"type": "string"}
            }
        },
        "viewfilter.CriteriaRequest": {
            "type": "object",
            "properties": {
                "base": {"$ref": "#/definitions/rules.Criteria"}
            }
        },
        "viewfilter.CriteriaResponse": {
            "type": "object",
            "properties": {
                "criteria": {"$ref": "#/definitions/rules.Criteria"},
                "result": {"type": "string"},
                "view_id": {"type": "string"}
            }
        },
        "viewfilter.EditorPayload": {
            "type": "object",
            "properties": {
                "catalog": {"type": "array", "items": {"$ref": "#/definitions/rules.CatalogEntry"}},
                "help": {"type": "string"},
                "initial": {"$ref": "#/definitions/rules.EditorRuleSet"}
            }
        },
        "viewfilter.SaveResponse": {
            "type": "object",
            "properties": {
                "filters": {"$ref": "#/definitions/rules.EditorRuleSet"},
                "view_id": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "View Filter Service API",
	Description:      "REST API for editing per-view filter rules and compiling them into search criteria",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
