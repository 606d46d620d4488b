package action

import (
	"fmt"

	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/result"
)

// Mode selects how actions are applied.
type Mode uint8

const (
	// Preflight applies structure with placeholder stores.
	Preflight Mode = iota
	// Execute applies structure with allocated stores.
	Execute
)

func (m Mode) String() string {
	if m == Execute {
		return "execute"
	}
	return "preflight"
}

// Action is one structural change. Paths inside an action are resolved
// when the action is applied, not when it is declared.
type Action interface {
	Apply(ds *graph.DataStructure, mode Mode) result.Result[struct{}]
	String() string
}

// Batch is an ordered list of actions.
type Batch []Action

// Append adds actions to the end of the batch.
func (b *Batch) Append(actions ...Action) { *b = append(*b, actions...) }

// Apply applies every action of batch in order. The first failing action
// aborts the remainder. Warnings from all applied actions are returned.
func Apply(ds *graph.DataStructure, batch Batch, mode Mode) result.Result[struct{}] {
	var res result.Result[struct{}]
	for _, a := range batch {
		r := a.Apply(ds, mode)
		result.Merge(&res, r)
		if !r.Valid() {
			break
		}
	}
	return res
}

func done() result.Result[struct{}] { return result.Ok(struct{}{}) }

// fail converts err into a failed result, prefixing the message with the
// action description.
func fail(a Action, err error) result.Result[struct{}] {
	kind := result.FromError(err).Kind
	return result.Fail[struct{}](result.Wrap(kind, err, "%s", a))
}

// resolve looks up an existing object path.
func resolve(ds *graph.DataStructure, path graph.DataPath) (graph.ID, error) {
	if path.IsRoot() {
		return graph.RootID, nil
	}
	id, found := ds.Resolve(path)
	if !found {
		return graph.ID{}, fmt.Errorf("%w: %s", graph.ErrNotFound, path)
	}
	return id, nil
}

// resolveParent validates a creation path and resolves its parent.
func resolveParent(ds *graph.DataStructure, path graph.DataPath) (graph.ID, error) {
	if path.IsRoot() {
		return graph.ID{}, fmt.Errorf("%w: empty path", graph.ErrInvalidName)
	}
	if err := graph.ValidateName(path.Name()); err != nil {
		return graph.ID{}, err
	}
	return resolve(ds, path.Parent())
}
