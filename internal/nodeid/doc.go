// internal/nodeid/doc.go

/*
Package nodeid validates step and input identifiers and parses references to
a node's output, written in the canonical format `node` or `node.output`.

Identifiers are non-empty runs of letters, digits, `_` and `-`. Generated
step ids are UUIDs and satisfy the same rule.
*/
package nodeid
