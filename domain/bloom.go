package domain

import "context"

// BloomRepository is a probabilistic set of existing image IDs.
type BloomRepository interface {
	// Add puts the ID into the filter
	Add(ctx context.Context, id int64) error

	// Exists checks whether the ID may exist.
	// true: may exist (the store must be asked)
	// false: not added since the filter was built; the store still has the
	// final say, since an Add can fail after the image was stored
	Exists(ctx context.Context, id int64) (bool, error)

	// BulkAdd adds many IDs at once
	BulkAdd(ctx context.Context, ids []int64) error
}
