// Package graph implements the hierarchical data model pipelines operate on.
//
// A [DataStructure] owns every object (groups, data arrays, image
// geometries, attribute matrices and montages) in a single arena. Objects
// are addressed two ways:
//
//   - by [ID], a generation-checked arena reference that stays valid for the
//     object's lifetime and is never reissued once the object is destroyed;
//   - by [DataPath], a list of sibling names from the root, resolved by
//     walking child maps. Paths may go stale after a rename or removal.
//
// Objects may have several owning parents. An object is destroyed when its
// last parent drops it, and destruction cascades to children left without
// parents. References that are not ownership, such as the cell attribute
// matrix of an image geometry, are plain IDs checked on lookup.
//
// Every mutating method either applies completely or returns an error and
// leaves the structure unchanged. A DataStructure is not safe for concurrent
// mutation; element data inside stores may be written concurrently by
// callers that partition indexes.
package graph
