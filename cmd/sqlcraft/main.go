// Package main provides a CLI for rendering and running sqlcraft statement
// files.
//
// The CLI supports:
//   - render: Print the SQL and parameters of a statement file
//   - exec: Run a statement file against a database
//   - copy: Bulk load a CSV file into a table through COPY
//   - config show: Print the effective configuration
//   - version: Print version information
//
// Usage:
//
//	sqlcraft [flags] <command>
//
// Commands that run statements need --db or a database section in
// sqlcraft.yaml (or SQLCRAFT_DATABASE_URL). render works offline.
package main

func main() {
	Execute()
}
