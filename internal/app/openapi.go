package app

import _ "embed"

// OpenAPISpec is the API description served at /docs/openapi.yaml
//
//go:embed docs/openapi.yaml
var OpenAPISpec []byte
