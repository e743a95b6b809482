package engine

import "github.com/pagedb/sqlt/internal/btree"

// Value is the tagged NULL/INTEGER/TEXT union shared by statement literals
// and stored rows.
type Value = btree.Value

// Null, Int, and Str re-export the tree package's constructors so callers
// building statements need not import internal/btree directly.
func Null() Value      { return btree.Null() }
func Int(n int32) Value { return btree.Int(n) }
func Str(s string) Value { return btree.Str(s) }
