// Package tree provides a concurrent ordered map of strings.
//
// The map is an unbalanced binary search tree. Every node has its own
// sync.RWMutex and all operations descend with lock coupling
// (hand-over-hand locking): the child is locked before the parent is
// released. Lookups take read locks; inserts and removals take write locks.
// A permanent sentinel node with the empty key anchors the descent so an
// empty tree needs no special case.
//
// # Basic Usage
//
//	t := tree.New()
//	if err := t.Insert("user", "alice"); errors.Is(err, tree.ErrExists) {
//	    // key was already present, value unchanged
//	}
//	v, err := t.Lookup("user")
//	err = t.Remove("user")
//
// # Dump
//
// Dump writes a pre-order listing, one node per line, indented by depth.
// While it runs it keeps every ancestor of its current position read-locked,
// so writers below any unfinished node wait for it. It is not a snapshot of
// the whole tree.
//
// # Limits
//
// Keys and values are limited to MaxLen bytes. The empty key is reserved.
package tree
