// Package db carries the embedded schema applied at startup.
package db

import _ "embed"

// Schema contains the DDL for the search analytics tables.
//
//go:embed migrations/001_schema.sql
var Schema string
