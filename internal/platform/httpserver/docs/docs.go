// Package docs registers the OpenAPI document served under /swagger/.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "UserHeader": {"type": "apiKey", "in": "header", "name": "X-User-Id"}
    },
    "security": [{"UserHeader": []}],
    "paths": {
        "/elections": {
            "post": {"summary": "Create a draft election", "tags": ["elections"], "responses": {"201": {"description": "created"}, "400": {"description": "invalid request"}, "403": {"description": "forbidden"}}}
        },
        "/elections/{election_id}": {
            "get": {"summary": "Get an election with its candidates", "tags": ["elections"], "responses": {"200": {"description": "ok"}, "404": {"description": "not found"}}},
            "patch": {"summary": "Patch an election within its state rules", "tags": ["elections"], "responses": {"200": {"description": "ok"}, "400": {"description": "invalid request"}, "409": {"description": "invalid state"}}}
        },
        "/elections/{election_id}/open": {
            "post": {"summary": "Open a draft election", "tags": ["lifecycle"], "responses": {"200": {"description": "ok"}, "409": {"description": "invalid state"}}}
        },
        "/elections/{election_id}/close": {
            "post": {"summary": "Close an open election", "tags": ["lifecycle"], "responses": {"200": {"description": "ok"}, "409": {"description": "invalid state"}}}
        },
        "/elections/{election_id}/rollback": {
            "post": {"summary": "Return a closed election to draft and delete its votes", "tags": ["lifecycle"], "responses": {"200": {"description": "ok"}, "409": {"description": "invalid state"}}}
        },
        "/elections/{election_id}/salt/destroy": {
            "post": {"summary": "Destroy the anonymity salt of a closed election", "tags": ["lifecycle"], "responses": {"200": {"description": "ok"}, "409": {"description": "invalid state"}}}
        },
        "/elections/{election_id}/candidates": {
            "post": {"summary": "Add a candidate", "tags": ["candidates"], "responses": {"201": {"description": "created"}}}
        },
        "/elections/{election_id}/candidates/{candidate_id}/accept": {
            "post": {"summary": "Accept a nomination", "tags": ["candidates"], "responses": {"200": {"description": "ok"}}}
        },
        "/elections/{election_id}/votes": {
            "post": {"summary": "Cast a ballot", "tags": ["ballots"], "responses": {"201": {"description": "recorded"}, "403": {"description": "not eligible"}, "409": {"description": "already voted"}}}
        },
        "/elections/{election_id}/votes/{vote_id}": {
            "delete": {"summary": "Void the ballot containing the vote", "tags": ["ballots"], "responses": {"200": {"description": "voided"}}}
        },
        "/elections/{election_id}/proxy-votes": {
            "post": {"summary": "Cast a ballot as proxy", "tags": ["ballots"], "responses": {"201": {"description": "recorded"}, "409": {"description": "already voted or revoked"}}}
        },
        "/elections/{election_id}/voter-overrides": {
            "post": {"summary": "Grant an attendance override", "tags": ["delegation"], "responses": {"201": {"description": "created"}}}
        },
        "/elections/{election_id}/voter-overrides/bulk": {
            "post": {"summary": "Grant overrides in bulk", "tags": ["delegation"], "responses": {"200": {"description": "ok"}}}
        },
        "/elections/{election_id}/voter-overrides/{user_id}": {
            "delete": {"summary": "Revoke an override", "tags": ["delegation"], "responses": {"204": {"description": "revoked"}}}
        },
        "/elections/{election_id}/proxy-authorizations": {
            "get": {"summary": "List proxy authorizations", "tags": ["delegation"], "responses": {"200": {"description": "ok"}}},
            "post": {"summary": "Authorize a proxy", "tags": ["delegation"], "responses": {"201": {"description": "created"}, "409": {"description": "chain or conflict"}}}
        },
        "/elections/{election_id}/proxy-authorizations/{authorization_id}": {
            "delete": {"summary": "Revoke a proxy authorization", "tags": ["delegation"], "responses": {"200": {"description": "revoked"}, "409": {"description": "already used"}}}
        },
        "/elections/{election_id}/results": {
            "get": {"summary": "Tallied results", "tags": ["results"], "responses": {"200": {"description": "ok"}, "423": {"description": "not yet available"}}}
        },
        "/elections/{election_id}/ballot-stats": {
            "get": {"summary": "Turnout without per-candidate counts", "tags": ["results"], "responses": {"200": {"description": "ok"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/elections/v1",
	Schemes:          []string{},
	Title:            "Election Engine API",
	Description:      "Election lifecycle, ballots, delegation and results.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
