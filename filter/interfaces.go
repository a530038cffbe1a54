package filter

import (
	"context"

	"github.com/s0up4200/octolist/octopus"
)

// Filter decides whether a contact matches
type Filter interface {
	// Evaluate reports whether contact matches. An error means the
	// expression could not be applied to this contact.
	Evaluate(contact *octopus.Contact) (bool, error)
}

// CompiledFilter represents a pre-compiled filter ready for evaluation
type CompiledFilter interface {
	Filter

	// Expression returns the original filter expression
	Expression() string
}

// Compiler compiles filter expressions into executable filters
type Compiler interface {
	// Compile parses and compiles a filter expression
	Compile(expression string) (CompiledFilter, error)
}

// CachingCompiler provides caching for compiled filters
type CachingCompiler interface {
	Compiler

	// Clear removes all cached filters
	Clear()

	// Size returns the number of cached filters
	Size() int
}

// Selector applies a filter to many contacts
type Selector interface {
	Select(ctx context.Context, filter CompiledFilter, contacts []*octopus.Contact) (Selection, error)
}

// Selection is the outcome of applying a filter to a set of contacts.
// Contacts the filter could not be evaluated for are reported in Errors and
// never appear in Matches.
type Selection struct {
	Matches []*octopus.Contact
	Errors  []*EvaluationError
}
