// Package action describes structural changes to a graph.DataStructure as
// values and applies them in one of two modes.
//
// In Preflight mode an action makes its structural change with placeholder
// stores only, so later actions and later pipeline steps can resolve the
// paths it creates without any element memory being spent. In Execute mode
// the same action allocates and reshapes real stores.
//
// [Apply] runs a [Batch] in order and stops at the first action that fails.
// Effects of earlier actions in the batch remain; there is no rollback.
// Apply assumes exclusive access to the structure.
package action
