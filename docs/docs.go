// Package docs embeds the OpenAPI document and the page that renders it.
package docs

import "embed"

//go:embed openapi.yaml swagger.html
var Static embed.FS
