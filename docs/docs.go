// Package docs holds the OpenAPI description served under /swagger.
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
        "/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [
                    {"description": "Username and password", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.authRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.authResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.messageOnly"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.messageOnly"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login",
                "parameters": [
                    {"description": "Login credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.authRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.authResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.authResponse"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.meResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.messageOnly"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.messageOnly"}}
                }
            }
        },
        "/ai/chat": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ai"],
                "summary": "Chat with a model",
                "parameters": [
                    {"description": "Message and optional model key", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.chatRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.messageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.messageResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handler.messageOnly"}}
                }
            }
        },
        "/ai/history": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["ai"],
                "summary": "Chat history",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/handler.messageResponse"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.messageOnly"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.messageOnly"}}
                }
            }
        },
        "/ai/test": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ai"],
                "summary": "Provider connectivity probe",
                "parameters": [
                    {"type": "string", "description": "Model key (defaults to qwen-public)", "name": "modelKey", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.ProbeResult"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/domain.ProbeResult"}}
                }
            }
        }
    },
    "definitions": {
        "domain.ProbeResult": {
            "type": "object",
            "properties": {
                "modelKey": {"type": "string"},
                "baseUrl": {"type": "string"},
                "host": {"type": "string"},
                "port": {"type": "integer"},
                "dnsResolved": {"type": "boolean"},
                "ips": {"type": "array", "items": {"type": "string"}},
                "tcpConnect": {"type": "boolean"},
                "tcpError": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "handler.authRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string", "maxLength": 64},
                "password": {"type": "string", "maxLength": 72}
            }
        },
        "handler.authResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "handler.chatRequest": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "modelKey": {"type": "string"}
            }
        },
        "handler.meResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "role": {"type": "string"}
            }
        },
        "handler.messageOnly": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        },
        "handler.messageResponse": {
            "type": "object",
            "properties": {
                "sender": {"type": "string"},
                "content": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "suatgpt API",
	Description:      "Chat backend: accounts, bearer tokens and LLM completions.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
