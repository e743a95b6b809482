package btree

import "errors"

// ErrDuplicateKey is returned by Insert when the key already exists anywhere
// in the tree. The executor remaps this into a user-visible "duplicate
// primary key" error when the key came from a PRIMARY KEY column.
var ErrDuplicateKey = errors.New("btree: duplicate key")
