package user

import "errors"

// ErrNotFound is shared by every store implementation so callers can treat
// "record already gone" uniformly, whatever backs the store.
var ErrNotFound = errors.New("user not found")
