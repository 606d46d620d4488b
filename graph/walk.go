package graph

import (
	"errors"
	"fmt"

	"github.com/hupe1980/nxgraph/datastore"
)

// SkipChildren can be returned by a WalkFunc to skip a container's children.
var SkipChildren = errors.New("skip children")

// WalkFunc is called for every path reachable from the root.
type WalkFunc func(path DataPath, obj Object) error

// Walk visits every object depth first in sorted name order. Objects with
// several parents are visited once per path.
func (ds *DataStructure) Walk(fn WalkFunc) error {
	return ds.walk(&ds.root, DataPath{}, fn)
}

func (ds *DataStructure) walk(c *container, prefix DataPath, fn WalkFunc) error {
	for _, name := range c.ChildNames() {
		obj, ok := ds.Get(c.entries[name])
		if !ok {
			continue
		}
		path := prefix.Child(name)
		err := fn(path, obj)
		if errors.Is(err, SkipChildren) {
			continue
		}
		if err != nil {
			return err
		}
		if sub, ok := obj.(Container); ok {
			if err := ds.walk(sub.children(), path, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// PathsOf returns every path that resolves to id.
func (ds *DataStructure) PathsOf(id ID) []DataPath {
	if id.IsZero() {
		return []DataPath{{}}
	}
	obj, ok := ds.Get(id)
	if !ok {
		return nil
	}
	var out []DataPath
	for _, p := range obj.node().parents {
		for _, pp := range ds.PathsOf(p) {
			out = append(out, pp.Child(obj.Name()))
		}
	}
	return out
}

// StructuralCopy returns a copy of the whole structure with the same IDs
// in which every store is replaced by an unallocated placeholder. Stores
// shared between arrays stay shared. The copy has no memory acquirer.
func (ds *DataStructure) StructuralCopy() *DataStructure {
	placeholders := make(map[datastore.Store]datastore.Store)
	out := &DataStructure{
		root:      ds.root.copyContainer(),
		storeRefs: make(map[datastore.Store]int),
	}
	out.nodes = ds.nodes.Clone(func(o Object) Object {
		c := o.clone()
		if a, ok := c.(*DataArray); ok {
			ph, ok := placeholders[a.store]
			if !ok {
				ph = datastore.Placeholder(a.store)
				placeholders[a.store] = ph
			}
			a.store = ph
			out.storeRefs[ph]++
		}
		return c
	})
	return out
}

// Validate checks the structural invariants of the graph.
func (ds *DataStructure) Validate() error {
	var errs []error
	check := func(parent ID, c *container) {
		for name, child := range c.entries {
			obj, ok := ds.Get(child)
			if !ok {
				errs = append(errs, fmt.Errorf("%s: dangling child %q -> %s", parent, name, child))
				continue
			}
			if obj.Name() != name {
				errs = append(errs, fmt.Errorf("%s: child %q is named %q", parent, name, obj.Name()))
			}
			if !obj.node().hasParent(parent) {
				errs = append(errs, fmt.Errorf("%s: child %q does not list its parent", parent, name))
			}
		}
	}
	check(RootID, &ds.root)

	for ref, obj := range ds.nodes.All() {
		id := ID(ref)
		b := obj.node()
		if b.id != id {
			errs = append(errs, fmt.Errorf("%s: stored under %s", b.id, id))
		}
		if len(b.parents) == 0 {
			errs = append(errs, fmt.Errorf("%s %q: no parents", id, b.name))
		}
		for _, p := range b.parents {
			c := ds.containerOf(p)
			if c == nil || c.entries[b.name] != id {
				errs = append(errs, fmt.Errorf("%s %q: parent %s does not list it", id, b.name, p))
			}
			if p == id || (!p.IsZero() && ds.isAncestor(id, p)) {
				errs = append(errs, fmt.Errorf("%s %q: %w", id, b.name, ErrCycle))
			}
		}
		switch o := obj.(type) {
		case *DataArray:
			s := o.store
			if s.Size() != s.TupleShape().Product()*s.ComponentShape().Product() {
				errs = append(errs, fmt.Errorf("%s %q: size %d does not match shapes", id, b.name, s.Size()))
			}
			for _, p := range b.parents {
				if err := ds.checkTupleShape(p, s.TupleShape()); err != nil {
					errs = append(errs, fmt.Errorf("%s %q: %w", id, b.name, err))
				}
			}
		case Container:
			check(id, o.children())
		}
	}
	return errors.Join(errs...)
}
