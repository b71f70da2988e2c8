// Package tableio reads tables from delimited text and JSON, optionally
// gzip, bzip2 or xz compressed, and writes them back out as CSV, aligned text
// or SQLite tables.
package tableio
