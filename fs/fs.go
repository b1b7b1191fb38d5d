// Package appfs embeds the database migrations, the HTML/email templates and the password blocklist.
package appfs

import "embed"

//go:embed migrations templates templates/email/_base.gohtml templates/email/_base.txt common-passwords.txt
var FS embed.FS
