// Package migrations embebe los archivos SQL en el binario.
package migrations

import "embed"

//go:embed postgres/*.sql
var FS embed.FS

// Dir es el directorio dentro del FS embebido para Postgres.
const Dir = "postgres"
