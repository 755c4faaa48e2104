// Package rdberr defines the typed error kinds raised across the
// rdf/schema/rdb/store packages (spec.md §7). They live in their own
// package (rather than, say, store) so that rdf and schema can return
// them without importing store, and store can match on them without
// importing rdf/schema.
package rdberr

import "fmt"

// ConfigurationError wraps a malformed store-open configuration.
type ConfigurationError struct {
	Configuration interface{}
	Reason        string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %#v: %s", e.Configuration, e.Reason)
}

// InvalidNodeSyntax signals a node string that does not match the
// table-IRI/row-node or predicate-IRI grammar.
type InvalidNodeSyntax struct {
	Node   string
	Reason string
}

func (e *InvalidNodeSyntax) Error() string {
	return fmt.Sprintf("invalid node syntax %q: %s", e.Node, e.Reason)
}

// UnknownProperty signals a well-formed predicate IRI whose table or
// column/relationship is not present in the schema index.
type UnknownProperty struct {
	IRI string
}

func (e *UnknownProperty) Error() string {
	return fmt.Sprintf("unknown property %q", e.IRI)
}

// NodeKindMismatch signals a node whose blank/IRI kind disagrees with
// its table's blank-node-table flag.
type NodeKindMismatch struct {
	Node           string
	WantBlankNode  bool
	GotBlankNode   bool
}

func (e *NodeKindMismatch) Error() string {
	return fmt.Sprintf("node %q: expected blank node = %v, got %v",
		e.Node, e.WantBlankNode, e.GotBlankNode)
}

// ValueDecodeError signals an RDF literal that cannot be parsed into
// its declared SQL type (e.g. a malformed duration literal).
type ValueDecodeError struct {
	Literal  string
	Datatype string
	Cause    error
}

func (e *ValueDecodeError) Error() string {
	return fmt.Sprintf("cannot decode %q as %s: %v", e.Literal, e.Datatype, e.Cause)
}

func (e *ValueDecodeError) Unwrap() error { return e.Cause }

// BackendError wraps any failure returned by the relational driver.
type BackendError struct {
	Op    string
	Cause error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error during %s: %v", e.Op, e.Cause)
}

func (e *BackendError) Unwrap() error { return e.Cause }
