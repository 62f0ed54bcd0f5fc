package rbac

import "strings"

// Atom identifies a primitive predicate.
type Atom uint8

// Primitive predicates.
const (
	IsAuthenticated Atom = iota + 1
	IsModerator
	IsOwner
)

func (a Atom) String() string {
	switch a {
	case IsAuthenticated:
		return "IsAuthenticated"
	case IsModerator:
		return "IsModerator"
	case IsOwner:
		return "IsOwner"
	default:
		return "?"
	}
}

type nodeKind uint8

const (
	nodeAtom nodeKind = iota
	nodeAnd
	nodeOr
	nodeNot
)

// Policy is a boolean combinator tree over atoms.
type Policy struct {
	kind  nodeKind
	atom  Atom
	left  *Policy
	right *Policy
}

// Is wraps an atom as a policy.
func Is(a Atom) Policy {
	return Policy{kind: nodeAtom, atom: a}
}

// And holds when both operands hold.
func And(a, b Policy) Policy {
	return Policy{kind: nodeAnd, left: &a, right: &b}
}

// Or holds when either operand holds.
func Or(a, b Policy) Policy {
	return Policy{kind: nodeOr, left: &a, right: &b}
}

// Not negates p.
func Not(p Policy) Policy {
	return Policy{kind: nodeNot, left: &p}
}

// Eval interprets the tree for the actor and resource, short-circuiting And
// and Or. A nil resource is a collection-level check: IsOwner holds there
// and ownership is applied later as a row scope.
func (p Policy) Eval(actor Actor, res *Resource) bool {
	switch p.kind {
	case nodeAtom:
		return evalAtom(p.atom, actor, res)
	case nodeAnd:
		return p.left.Eval(actor, res) && p.right.Eval(actor, res)
	case nodeOr:
		return p.left.Eval(actor, res) || p.right.Eval(actor, res)
	case nodeNot:
		return !p.left.Eval(actor, res)
	default:
		return false
	}
}

func evalAtom(a Atom, actor Actor, res *Resource) bool {
	switch a {
	case IsAuthenticated:
		return actor.Authenticated
	case IsModerator:
		return actor.Authenticated && actor.IsModerator()
	case IsOwner:
		if res == nil {
			return true
		}
		return actor.Authenticated && res.OwnerID != nil && *res.OwnerID == actor.ID
	default:
		return false
	}
}

func (p Policy) String() string {
	var b strings.Builder
	p.write(&b)
	return b.String()
}

func (p Policy) write(b *strings.Builder) {
	switch p.kind {
	case nodeAtom:
		b.WriteString(p.atom.String())
	case nodeNot:
		b.WriteString("NOT ")
		p.left.write(b)
	case nodeAnd, nodeOr:
		op := " AND "
		if p.kind == nodeOr {
			op = " OR "
		}
		b.WriteByte('(')
		p.left.write(b)
		b.WriteString(op)
		p.right.write(b)
		b.WriteByte(')')
	}
}
