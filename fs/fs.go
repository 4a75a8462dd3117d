// Package fs embeds runtime assets: database migrations and email templates.
package fs

import "embed"

//go:embed migrations assets/templates/email
var FS embed.FS
