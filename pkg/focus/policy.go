package focus

import (
	"sort"

	"github.com/apache/harmony-sub021/pkg/component"
	herrors "github.com/apache/harmony-sub021/pkg/errors"
)

// Policy orders the members of a focus cycle. Implementations are pure
// functions of the tree and are called with the toolkit lock held.
//
// Every method returns only accepted nodes (focusable, enabled, showing),
// or NoNode when the cycle has none.
type Policy interface {
	// ComponentAfter returns the member after current, wrapping to the first.
	ComponentAfter(t *component.Tree, root, current component.NodeID) component.NodeID
	// ComponentBefore returns the member before current, wrapping to the last.
	ComponentBefore(t *component.Tree, root, current component.NodeID) component.NodeID
	First(t *component.Tree, root component.NodeID) component.NodeID
	Last(t *component.Tree, root component.NodeID) component.NodeID
	// Default is the member focused when traversal enters the cycle.
	Default(t *component.Tree, root component.NodeID) component.NodeID
	// Initial is the member focused when a window is first activated.
	Initial(t *component.Tree, root component.NodeID) component.NodeID
}

// Policy names accepted by PolicyByName.
const (
	PolicyContainer = "container"
	PolicyLayout    = "layout"
)

// PolicyByName returns a built-in policy.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", PolicyContainer:
		return ContainerOrder(), nil
	case PolicyLayout:
		return LayoutOrder(), nil
	}
	return nil, herrors.New(herrors.ErrCodeInvalidPolicy, "unknown traversal policy").WithContext("name", name)
}

// SortedPolicy walks a cycle in the order produced by its order function.
type SortedPolicy struct {
	name  string
	order func(t *component.Tree, root component.NodeID) []component.NodeID
}

// ContainerOrder traverses members in tree pre-order.
func ContainerOrder() *SortedPolicy {
	return &SortedPolicy{name: PolicyContainer, order: cycleMembers}
}

// LayoutOrder traverses members top-to-bottom, then left-to-right, falling
// back to tree order for equal positions.
func LayoutOrder() *SortedPolicy {
	return &SortedPolicy{name: PolicyLayout, order: func(t *component.Tree, root component.NodeID) []component.NodeID {
		members := cycleMembers(t, root)
		sort.SliceStable(members, func(i, j int) bool {
			a, b := t.Bounds(members[i]), t.Bounds(members[j])
			if a.Y != b.Y {
				return a.Y < b.Y
			}
			return a.X < b.X
		})
		return members
	}}
}

// Name returns the policy's config name.
func (p *SortedPolicy) Name() string { return p.name }

// Members returns every member of root's cycle in traversal order,
// accepted or not.
func (p *SortedPolicy) Members(t *component.Tree, root component.NodeID) []component.NodeID {
	return p.order(t, root)
}

func (p *SortedPolicy) ComponentAfter(t *component.Tree, root, current component.NodeID) component.NodeID {
	return p.step(t, root, current, 1)
}

func (p *SortedPolicy) ComponentBefore(t *component.Tree, root, current component.NodeID) component.NodeID {
	return p.step(t, root, current, -1)
}

func (p *SortedPolicy) First(t *component.Tree, root component.NodeID) component.NodeID {
	for _, m := range p.order(t, root) {
		if t.Accepted(m) {
			return m
		}
	}
	return component.NoNode
}

func (p *SortedPolicy) Last(t *component.Tree, root component.NodeID) component.NodeID {
	members := p.order(t, root)
	for i := len(members) - 1; i >= 0; i-- {
		if t.Accepted(members[i]) {
			return members[i]
		}
	}
	return component.NoNode
}

func (p *SortedPolicy) Default(t *component.Tree, root component.NodeID) component.NodeID {
	return p.First(t, root)
}

func (p *SortedPolicy) Initial(t *component.Tree, root component.NodeID) component.NodeID {
	return p.Default(t, root)
}

// step scans from current in direction dir, wrapping once. current itself is
// returned only when it is the sole accepted member.
func (p *SortedPolicy) step(t *component.Tree, root, current component.NodeID, dir int) component.NodeID {
	members := p.order(t, root)
	n := len(members)
	if n == 0 {
		return component.NoNode
	}
	idx := indexOf(members, unitOf(t, members, root, current))
	if idx < 0 {
		if dir > 0 {
			return p.First(t, root)
		}
		return p.Last(t, root)
	}
	for i := 1; i <= n; i++ {
		m := members[((idx+dir*i)%n+n)%n]
		if t.Accepted(m) {
			return m
		}
	}
	return component.NoNode
}

// cycleMembers lists root's cycle in pre-order. Plain scopes are entered;
// nested cycle roots appear once and are not entered.
func cycleMembers(t *component.Tree, root component.NodeID) []component.NodeID {
	var out []component.NodeID
	var walk func(component.NodeID)
	walk = func(n component.NodeID) {
		for _, c := range t.Children(n) {
			out = append(out, c)
			if t.Kind(c) == component.KindScope && !t.IsCycleRoot(c) {
				walk(c)
			}
		}
	}
	walk(root)
	return out
}

// unitOf maps current to the member that stands for it in root's cycle:
// itself, or the nested cycle root that contains it.
func unitOf(t *component.Tree, members []component.NodeID, root, current component.NodeID) component.NodeID {
	for cur := current; cur != component.NoNode && cur != root; cur = t.Parent(cur) {
		if indexOf(members, cur) >= 0 {
			return cur
		}
	}
	return component.NoNode
}

func indexOf(ids []component.NodeID, id component.NodeID) int {
	if id == component.NoNode {
		return -1
	}
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
