// Package core provides the built-in filters.
//
// Every filter follows the filter contract: Preflight declares the
// objects it creates as actions, and Execute fills them. Filters that
// produce per-feature data write into a feature attribute matrix whose
// tuple 0 is the background feature.
//
// Register adds all of them to a registry:
//
//	reg := filter.NewRegistry()
//	if err := core.Register(reg); err != nil {
//		return err
//	}
package core
