package generate

import (
	"fmt"
	"iter"

	"git.home.luguber.info/inful/packsmith/internal/pack"
)

// TreeNode is one node of a balanced binary decomposition over a slice of
// items. A node covers the half-open item range [Start, Stop); leaves cover
// exactly one item. Nodes are produced parent-first, so by the time a node
// arrives its parent path has already been visited.
type TreeNode[T any] struct {
	Root   string // path of the tree root
	Parent string // path of the parent node (the root is its own parent)
	Path   string // path of this node: "<root>/<start>_<stop>", or Root itself
	Start  int
	Stop   int
	Depth  int
	Items  []T

	key func(T) int
}

// Leaf reports whether the node covers a single item.
func (n TreeNode[T]) Leaf() bool { return n.Stop-n.Start == 1 }

// Bounds returns the inclusive value range covered by the node: the key of
// the first and last item when a key function is set, otherwise the item
// indexes. Items are expected to be ordered by key.
func (n TreeNode[T]) Bounds() (low, high int) {
	if n.key == nil {
		return n.Start, n.Stop - 1
	}
	return n.key(n.Items[0]), n.key(n.Items[len(n.Items)-1])
}

// Value returns the single value covered by a leaf node.
func (n TreeNode[T]) Value() int {
	low, _ := n.Bounds()
	return low
}

// FunctionTree generates a dispatch tree of functions in the data container.
// The root path comes from the generator's Path with the given template
// (empty for the default), scoped by the function kind; a nil hashValue
// defaults to the items themselves. The returned sequence is lazy and
// single-pass: each node pairs with the function at the node's parent path,
// created in the data container on demand, so callers append dispatch
// commands for a node into its parent as the tree streams by. Re-invoke to
// restart.
func FunctionTree[T any](g *Generator, template string, items []T, key func(T) int, hashValue any) (iter.Seq2[TreeNode[T], *pack.Function], error) {
	if hashValue == nil {
		hashValue = items
	}
	root, err := g.WithScope(pack.KindFunction).Path(template, hashValue)
	if err != nil {
		return nil, err
	}
	if _, _, err := pack.ParseKey(root); err != nil {
		return nil, fmt.Errorf("function tree root: %w", err)
	}

	seq := func(yield func(TreeNode[T], *pack.Function) bool) {
		for node := range generateTree(root, items, key) {
			file, err := g.data.Ensure(node.Parent, pack.KindFunction, func() pack.File {
				return pack.NewFunction()
			})
			if err != nil {
				return
			}
			if !yield(node, file.(*pack.Function)) {
				return
			}
		}
	}
	return seq, nil
}

// generateTree yields the decomposition nodes in preorder. Ranges larger than
// one item split into balanced halves; child paths append "<start>_<stop>" to
// the root.
func generateTree[T any](root string, items []T, key func(T) int) iter.Seq[TreeNode[T]] {
	return func(yield func(TreeNode[T]) bool) {
		if len(items) == 0 {
			return
		}
		type frame struct {
			parent, path string
			start, stop  int
			depth        int
		}
		stack := []frame{{parent: root, path: root, start: 0, stop: len(items)}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			node := TreeNode[T]{
				Root:   root,
				Parent: f.parent,
				Path:   f.path,
				Start:  f.start,
				Stop:   f.stop,
				Depth:  f.depth,
				Items:  items[f.start:f.stop],
				key:    key,
			}
			if !yield(node) {
				return
			}
			if f.stop-f.start > 1 {
				mid := (f.start + f.stop) / 2
				// Right pushed first so the left half pops next,
				// keeping preorder left to right.
				stack = append(stack,
					frame{parent: f.path, path: childPath(root, mid, f.stop), start: mid, stop: f.stop, depth: f.depth + 1},
					frame{parent: f.path, path: childPath(root, f.start, mid), start: f.start, stop: mid, depth: f.depth + 1},
				)
			}
		}
	}
}

func childPath(root string, start, stop int) string {
	return fmt.Sprintf("%s/%d_%d", root, start, stop)
}
