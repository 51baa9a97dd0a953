package port

import "context"

// MediaStorage abstracts fetching submitted media by reference. Fetch returns
// the payload bytes together with the hex sha256 content hash of those bytes.
type MediaStorage interface {
	Fetch(ctx context.Context, ref string) ([]byte, string, error)
}
