package tree

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// MaxLen is the longest key or value the tree accepts, in bytes
const MaxLen = 255

var (
	// ErrNotFound is returned when the key is not in the tree
	ErrNotFound = errors.New("key not found")
	// ErrExists is returned by Insert when the key is already present
	ErrExists = errors.New("key already exists")
	// ErrTooLong is returned when a key or value exceeds MaxLen
	ErrTooLong = errors.New("key or value too long")
	// ErrInvalidKey is returned for the empty key, which is reserved for the sentinel
	ErrInvalidKey = errors.New("invalid key")
)

type lockMode int

const (
	readLock lockMode = iota
	writeLock
)

type node struct {
	mu    sync.RWMutex
	key   string
	value string
	left  *node
	right *node
}

func (n *node) lock(m lockMode) {
	if m == readLock {
		n.mu.RLock()
	} else {
		n.mu.Lock()
	}
}

func (n *node) unlock(m lockMode) {
	if m == readLock {
		n.mu.RUnlock()
	} else {
		n.mu.Unlock()
	}
}

// child returns the edge key would follow out of n. Must hold n's lock.
func (n *node) child(key string) *node {
	if key < n.key {
		return n.left
	}
	return n.right
}

// replaceChild swaps old for repl in whichever of n's edges points at old.
// Must hold n's write lock.
func (n *node) replaceChild(old, repl *node) {
	if n.left == old {
		n.left = repl
	} else {
		n.right = repl
	}
}

// Tree is an ordered string map built as a binary search tree where every
// node carries its own RWMutex. Operations descend with lock coupling: the
// next node is locked before the current one is released, so no edge is ever
// visible with both endpoints unlocked.
type Tree struct {
	// root is the sentinel. Its empty key sorts before every legal key, so
	// all real nodes hang off its right edge.
	root  node
	count atomic.Int64
}

// New returns an empty tree
func New() *Tree {
	return &Tree{}
}

func validate(key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxLen || len(value) > MaxLen {
		return ErrTooLong
	}
	return nil
}

// search descends from the sentinel looking for key. It returns the last node
// visited before the match (or before falling off the tree) and the matching
// node, if any. Both returned nodes are locked in mode; target is nil when the
// key is absent.
func (t *Tree) search(key string, mode lockMode) (parent, target *node) {
	parent = &t.root
	parent.lock(mode)
	for {
		next := parent.child(key)
		if next == nil {
			return parent, nil
		}
		next.lock(mode)
		if next.key == key {
			return parent, next
		}
		parent.unlock(mode)
		parent = next
	}
}

// Lookup returns the value stored under key
func (t *Tree) Lookup(key string) (string, error) {
	if err := validate(key, ""); err != nil {
		return "", err
	}

	parent, target := t.search(key, readLock)
	parent.unlock(readLock)
	if target == nil {
		return "", ErrNotFound
	}
	defer target.unlock(readLock)
	return target.value, nil
}

// Insert adds key with value. An existing key is left untouched and ErrExists
// is returned.
func (t *Tree) Insert(key, value string) error {
	if err := validate(key, value); err != nil {
		return err
	}

	parent, target := t.search(key, writeLock)
	defer parent.unlock(writeLock)
	if target != nil {
		target.unlock(writeLock)
		return ErrExists
	}

	n := &node{key: key, value: value}
	if key < parent.key {
		parent.left = n
	} else {
		parent.right = n
	}
	t.count.Add(1)
	return nil
}

// Remove deletes key from the tree.
//
// A node with two children keeps its place in the tree: it takes over the key
// and value of its in-order successor, and the successor node is unlinked
// instead.
func (t *Tree) Remove(key string) error {
	if err := validate(key, ""); err != nil {
		return err
	}

	parent, target := t.search(key, writeLock)
	if target == nil {
		parent.unlock(writeLock)
		return ErrNotFound
	}

	switch {
	case target.right == nil:
		parent.replaceChild(target, target.left)
		target.unlock(writeLock)
		parent.unlock(writeLock)
	case target.left == nil:
		parent.replaceChild(target, target.right)
		target.unlock(writeLock)
		parent.unlock(writeLock)
	default:
		// target stays linked, so its parent edge is not touched.
		parent.unlock(writeLock)
		t.replaceWithSuccessor(target)
	}
	t.count.Add(-1)
	return nil
}

// replaceWithSuccessor walks the left spine of target's right subtree, copies
// the leftmost node's payload into target and splices that node out. target
// must be write-locked on entry and is unlocked on return.
func (t *Tree) replaceWithSuccessor(target *node) {
	defer target.unlock(writeLock)

	succParent := target
	succ := target.right
	succ.lock(writeLock)
	for succ.left != nil {
		next := succ.left
		next.lock(writeLock)
		if succParent != target {
			succParent.unlock(writeLock)
		}
		succParent = succ
		succ = next
	}

	target.key = succ.key
	target.value = succ.value
	if succParent == target {
		target.right = succ.right
	} else {
		succParent.left = succ.right
		succParent.unlock(writeLock)
	}
	succ.unlock(writeLock)
}

// Len returns the number of keys in the tree, sentinel excluded
func (t *Tree) Len() int {
	return int(t.count.Load())
}

// Dump writes the tree in pre-order to w, one line per position, indented by
// depth. The sentinel prints as "(root)" and a missing child as "(null)".
//
// A node's read lock is held until both of its subtrees have been written, so
// the dump holds every lock on the path from the sentinel to its current
// position. Subtrees not yet visited may still change while it runs.
func (t *Tree) Dump(w io.Writer) error {
	bw := bufio.NewWriter(w)
	t.root.lock(readLock)
	if err := t.dump(bw, &t.root, 0); err != nil {
		return err
	}
	return bw.Flush()
}

// dump prints n and its subtrees. n is read-locked on entry and unlocked on
// return.
func (t *Tree) dump(w *bufio.Writer, n *node, depth int) error {
	defer n.unlock(readLock)

	label := n.key + " " + n.value
	if n == &t.root {
		label = "(root)"
	}
	if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", depth), label); err != nil {
		return err
	}

	for _, c := range [2]*node{n.left, n.right} {
		if c == nil {
			if _, err := fmt.Fprintf(w, "%s(null)\n", strings.Repeat(" ", depth+1)); err != nil {
				return err
			}
			continue
		}
		c.lock(readLock)
		if err := t.dump(w, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// DumpFile dumps the tree into path, creating or truncating it. Leading
// whitespace in path is ignored; a blank path dumps to fallback instead.
func (t *Tree) DumpFile(path string, fallback io.Writer) error {
	path = strings.TrimLeft(path, " \t\r\n")
	if path == "" {
		return t.Dump(fallback)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to open dump file: %w", err)
	}
	if err := t.Dump(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write dump: %w", err)
	}
	return f.Close()
}

// Cleanup unlinks every node except the sentinel and returns how many were
// released. No other goroutine may be using the tree.
func (t *Tree) Cleanup() int {
	t.root.mu.Lock()
	defer t.root.mu.Unlock()

	released := countNodes(t.root.left) + countNodes(t.root.right)
	t.root.left = nil
	t.root.right = nil
	t.count.Add(int64(-released))
	return released
}

func countNodes(n *node) int {
	if n == nil {
		return 0
	}
	return 1 + countNodes(n.left) + countNodes(n.right)
}
