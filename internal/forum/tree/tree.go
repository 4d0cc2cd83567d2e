// Package tree turns the flat parent/child relation of replies into nested
// nodes. Traversals use explicit worklists, so depth is bounded by memory and
// not by the goroutine stack. Nothing is cached between calls.
package tree

import (
	"errors"
	"iter"
	"sort"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
)

// Root is the parent key of top-level replies.
const Root int64 = 0

var ErrCrossQuestionParent = errors.New("parent reply belongs to a different question")

// CheckParent rejects a parent that lives under another question.
func CheckParent(parent model.Reply, questionID int64) error {
	if parent.QuestionID != questionID {
		return ErrCrossQuestionParent
	}
	return nil
}

// Index groups a set of replies by parent. A reply whose parent is not part of
// the set is treated as top-level. Siblings are kept oldest first.
type Index struct {
	byID     map[int64]model.Reply
	children map[int64][]int64
}

func NewIndex(replies []model.Reply) *Index {
	x := &Index{
		byID:     make(map[int64]model.Reply, len(replies)),
		children: make(map[int64][]int64),
	}
	for _, r := range replies {
		x.byID[r.ID] = r
	}
	for _, r := range replies {
		parent := Root
		if r.ParentID != nil {
			if _, ok := x.byID[*r.ParentID]; ok {
				parent = *r.ParentID
			}
		}
		x.children[parent] = append(x.children[parent], r.ID)
	}
	for _, ids := range x.children {
		sort.SliceStable(ids, func(i, j int) bool {
			return older(x.byID[ids[i]], x.byID[ids[j]])
		})
	}
	return x
}

func older(a, b model.Reply) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func (x *Index) Len() int { return len(x.byID) }

// ChildrenOf yields the direct children of parentID in creation order.
// Pass Root for top-level replies.
func (x *Index) ChildrenOf(parentID int64) iter.Seq[model.Reply] {
	return func(yield func(model.Reply) bool) {
		for _, id := range x.children[parentID] {
			if !yield(x.byID[id]) {
				return
			}
		}
	}
}

// Build returns the top-level replies with their descendants nested.
func (x *Index) Build() []model.ReplyNode {
	return x.build(x.children[Root])
}

// Node returns the subtree rooted at id.
func (x *Index) Node(id int64) (model.ReplyNode, bool) {
	if _, ok := x.byID[id]; !ok {
		return model.ReplyNode{}, false
	}
	return x.build([]int64{id})[0], true
}

type frame struct {
	id       int64
	expanded bool
}

// build assembles nodes in post-order: a node is materialized only after all
// of its children have been, so each value tree is built exactly once.
func (x *Index) build(roots []int64) []model.ReplyNode {
	built := make(map[int64]model.ReplyNode, len(x.byID))
	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{id: roots[i]})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		kids := x.children[f.id]
		if !f.expanded {
			stack = append(stack, frame{id: f.id, expanded: true})
			for i := len(kids) - 1; i >= 0; i-- {
				stack = append(stack, frame{id: kids[i]})
			}
			continue
		}

		node := model.ReplyNode{
			Reply:    x.byID[f.id],
			Children: make([]model.ReplyNode, 0, len(kids)),
		}
		for _, k := range kids {
			node.Children = append(node.Children, built[k])
			delete(built, k)
		}
		built[f.id] = node
	}

	out := make([]model.ReplyNode, 0, len(roots))
	for _, id := range roots {
		out = append(out, built[id])
	}
	return out
}

// Descendants returns id followed by every reply whose parent chain contains
// it, parents always before their children.
func (x *Index) Descendants(id int64) []int64 {
	if _, ok := x.byID[id]; !ok {
		return nil
	}
	out := make([]int64, 0, 8)
	queue := []int64{id}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		out = append(out, n)
		queue = append(queue, x.children[n]...)
	}
	return out
}

// Count returns the number of nodes in a nested forest.
func Count(nodes []model.ReplyNode) int {
	total := 0
	stack := make([]model.ReplyNode, 0, len(nodes))
	stack = append(stack, nodes...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		total++
		stack = append(stack, n.Children...)
	}
	return total
}
