package bucketsample

import "time"

// Object describes one stored object as reported by a bucket listing.
type Object struct {
	// Key is the object's full key within the bucket.
	Key string

	// Size is the object's size in bytes.
	Size int64

	// LastModified is the object's last modification time.
	LastModified time.Time
}

// ObjectIterator yields bucket objects one page element at a time.
// Next returns io.EOF when the listing is exhausted.
//
// Iterators are single-use; obtain a fresh one per listing pass.
type ObjectIterator interface {
	Next() (Object, error)
}
