package port

import "context"

// DocumentHashIndex tracks document hashes already accepted, for duplicate
// detection across jobs.
type DocumentHashIndex interface {
	Seen(ctx context.Context, hash string) (bool, error)
	Register(ctx context.Context, hash string) error
}
