package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marginalia/internal/application"
	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// QueryRequest is the collaborator-facing form of an entry query. String
// fields are parsed by Validate.
type QueryRequest struct {
	Tags           []string
	Kinds          []string
	Visibility     string // "", normal or hidden
	Location       string
	Recursive      bool
	ModifiedAfter  time.Time
	ModifiedBefore time.Time
	Name           string
	Sort           string
	Descending     bool
	Limit          int
	Offset         int
}

// QueryCommand runs a filtered, sorted, paginated entry query
type QueryCommand struct {
	store   ports.MetadataStore
	Request QueryRequest
}

// NewQueryCommand creates a new QueryCommand
func NewQueryCommand(store ports.MetadataStore, req QueryRequest) *QueryCommand {
	return &QueryCommand{store: store, Request: req}
}

// Validate checks the request and returns the parsed query
func (c *QueryCommand) Validate() (domain.EntryQuery, error) {
	r := c.Request
	q := domain.EntryQuery{
		Location:       r.Location,
		Recursive:      r.Recursive,
		ModifiedAfter:  r.ModifiedAfter,
		ModifiedBefore: r.ModifiedBefore,
		NameContains:   strings.TrimSpace(r.Name),
		Descending:     r.Descending,
		Limit:          r.Limit,
		Offset:         r.Offset,
	}

	for _, raw := range r.Tags {
		t, err := application.NormalizeTag(raw)
		if err != nil {
			return q, err
		}
		q.Tags = append(q.Tags, t)
	}
	for _, raw := range r.Kinds {
		k, ok := domain.ParseContentKind(raw)
		if !ok {
			return q, &application.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown kind %q", raw)}
		}
		q.Kinds = append(q.Kinds, k)
	}
	if strings.TrimSpace(r.Visibility) != "" {
		v, ok := domain.ParseVisibility(r.Visibility)
		if !ok {
			return q, &application.ValidationError{Field: "visibility", Message: fmt.Sprintf("unknown visibility %q", r.Visibility)}
		}
		q.Visibility = &v
	}
	if q.Location != "" {
		if err := application.ValidateLocation("location", q.Location); err != nil {
			return q, err
		}
	}
	sort, ok := domain.ParseSortField(r.Sort)
	if !ok {
		return q, &application.ValidationError{Field: "sort", Message: fmt.Sprintf("cannot sort by %q", r.Sort)}
	}
	q.Sort = sort
	if r.Limit < 0 || r.Offset < 0 {
		return q, &application.ValidationError{Field: "limit", Message: "limit and offset must not be negative"}
	}
	if !r.ModifiedAfter.IsZero() && !r.ModifiedBefore.IsZero() && !r.ModifiedAfter.Before(r.ModifiedBefore) {
		return q, &application.ValidationError{Field: "modified", Message: "modified-after must be before modified-before"}
	}
	return q, nil
}

// Execute runs the query command
func (c *QueryCommand) Execute(ctx context.Context) ([]domain.EntryRow, error) {
	q, err := c.Validate()
	if err != nil {
		return nil, err
	}
	return c.store.Query(ctx, q)
}
