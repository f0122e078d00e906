package repositories

import "errors"

// ErrNotFound is returned when a requested record does not exist or does not
// belong to the requesting user. Services translate it into a 404.
var ErrNotFound = errors.New("record not found")
