package dynatable

import (
	"context"
	"fmt"
)

// Table is a handle bound to one table name. It holds no schema of its own:
// every call resolves the table again, so a handle stays valid across drops
// and re-creations by other clients.
type Table interface {
	// Name returns the table name.
	Name() string

	// Schema returns the current schema of the table.
	Schema(ctx context.Context) (*TableSchema, error)

	// Create inserts a record and returns the stored row with its new id.
	// Omitted columns get their client-side default, if any.
	Create(ctx context.Context, record Record) (Record, error)

	// Read retrieves a record by its primary key.
	Read(ctx context.Context, id interface{}) (rec Record, found bool, err error)

	// MustRead is Read that reports a missing row as ErrRecordNotFound.
	MustRead(ctx context.Context, id interface{}) (Record, error)

	// ReadAll returns the rows equal to every filter, ordered by id.
	ReadAll(ctx context.Context, filters Record) ([]Record, error)

	// Update modifies the given columns of an existing record.
	Update(ctx context.Context, id interface{}, partial Record) (rec Record, found bool, err error)

	// Delete removes a record by its primary key.
	Delete(ctx context.Context, id interface{}) (bool, error)
}

// tableWrapper routes table-scoped calls through the client.
type tableWrapper struct {
	name   string
	client *clientWrapper
}

func (tw *tableWrapper) Name() string {
	return tw.name
}

func (tw *tableWrapper) Schema(ctx context.Context) (*TableSchema, error) {
	return tw.client.GetSchema(ctx, tw.name)
}

func (tw *tableWrapper) Create(ctx context.Context, record Record) (Record, error) {
	return tw.client.Create(ctx, tw.name, record)
}

func (tw *tableWrapper) Read(ctx context.Context, id interface{}) (Record, bool, error) {
	return tw.client.Read(ctx, tw.name, id)
}

func (tw *tableWrapper) MustRead(ctx context.Context, id interface{}) (Record, error) {
	rec, found, err := tw.client.Read(ctx, tw.name, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s %v: %w", tw.name, id, ErrRecordNotFound)
	}
	return rec, nil
}

func (tw *tableWrapper) ReadAll(ctx context.Context, filters Record) ([]Record, error) {
	return tw.client.ReadAll(ctx, tw.name, filters)
}

func (tw *tableWrapper) Update(ctx context.Context, id interface{}, partial Record) (Record, bool, error) {
	return tw.client.Update(ctx, tw.name, id, partial)
}

func (tw *tableWrapper) Delete(ctx context.Context, id interface{}) (bool, error) {
	return tw.client.Delete(ctx, tw.name, id)
}
