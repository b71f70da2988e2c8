// internal/nodeid/nodeid.go
package nodeid

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalid is returned for malformed identifiers and references.
var ErrInvalid = errors.New("invalid identifier")

var idRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// isValidName checks for undesirable but technically valid names.
func isValidName(name string) bool {
	return name != "-" && name != "_"
}

// Validate checks a single identifier.
func Validate(id string) error {
	if id == "" {
		return fmt.Errorf("%w: identifier cannot be empty", ErrInvalid)
	}
	if !idRegex.MatchString(id) || !isValidName(id) {
		return fmt.Errorf("%w: %q", ErrInvalid, id)
	}
	return nil
}

// Ref points at an output of a node. An empty Output means the node's
// default output.
type Ref struct {
	Node   string
	Output string
}

// Parse reads `node` or `node.output`.
func Parse(raw string) (Ref, error) {
	node, output, hasOutput := strings.Cut(raw, ".")
	if err := Validate(node); err != nil {
		return Ref{}, err
	}
	if hasOutput {
		if err := Validate(output); err != nil {
			return Ref{}, fmt.Errorf("output of %q: %w", node, err)
		}
	}
	return Ref{Node: node, Output: output}, nil
}

// String renders the canonical form.
func (r Ref) String() string {
	if r.Output == "" {
		return r.Node
	}
	return r.Node + "." + r.Output
}
