// Package manager defines the contract between the dispatcher and the
// application-provided storage/business-logic layer for one resource type. The
// core never implements these operations itself; memstore and mongostore are
// example implementations.
package manager

import (
	"context"

	"github.com/platformed/scimcore/expr"
	"github.com/platformed/scimcore/spec"
)

// SortOrder is the direction a list request should be sorted in.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

// ListArgs conveys a normalized list/search request to a manager.
type ListArgs struct {
	Filter             expr.Filter // nil means unfiltered
	SortBy             *expr.AttrPath
	SortOrder          SortOrder
	StartIndex         int // zero-based
	Count              int
	OptionalAttributes []expr.AttrPath
}

// GetArgs conveys a normalized single-resource fetch to a manager.
type GetArgs struct {
	ID                 string
	OptionalAttributes []expr.AttrPath
}

// ListResult is what a manager returns from List. TotalCount is the manager's own
// count of matching resources before paging; the dispatcher uses it verbatim for
// the response envelope's totalResults.
type ListResult struct {
	Resources  []map[string]interface{}
	TotalCount int
}

// UpdateArgs conveys a normalized PATCH request to a manager.
type UpdateArgs struct {
	ID    string
	Items []UpdateItem
}

// UpdateItem is one canonical change to apply. Kind mirrors patch.Kind without
// importing the patch package, so manager has no dependency on the translator.
type UpdateItem struct {
	Path  expr.ValuePath
	Kind  UpdateKind
	Value interface{}
}

type UpdateKind int

const (
	UpdateAdd UpdateKind = iota
	UpdateReplace
	UpdateRemove
)

// ResourceManager owns storage and business logic for one resource type. Every
// method may block on I/O; implementations must be safe for concurrent
// invocation from multiple request goroutines.
type ResourceManager interface {
	List(ctx context.Context, args ListArgs) (ListResult, error)
	Get(ctx context.Context, args GetArgs) (map[string]interface{}, error)
	Create(ctx context.Context, resource map[string]interface{}) (id string, err error)
	Update(ctx context.Context, args UpdateArgs) (map[string]interface{}, error)
	Replace(ctx context.Context, id string, resource map[string]interface{}) (map[string]interface{}, error)
	Delete(ctx context.Context, id string) error

	// DefaultPageSize is the count used when a list request omits one.
	DefaultPageSize() int

	// ResourceType returns the static resource-type document this manager backs.
	ResourceType() *spec.ResourceType

	// Schemas returns the core schema followed by every extension schema this
	// manager's resource type declares.
	Schemas() []*spec.Schema
}

// Pinger is optionally implemented by a ResourceManager whose backing store has a
// reachability check; the dispatcher's /health handler calls it if present.
type Pinger interface {
	Ping(ctx context.Context) error
}
