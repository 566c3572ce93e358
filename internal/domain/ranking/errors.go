package ranking

import "errors"

// ErrInvalidLimit is returned when a result limit is below one.
var ErrInvalidLimit = errors.New("limit must be at least 1")
