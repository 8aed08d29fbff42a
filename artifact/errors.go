package artifact

import "errors"

// ErrNotFound is returned when an artifact for the given session / name pair
// does not exist in the underlying store.
var ErrNotFound = errors.New("artifact not found")
