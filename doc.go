// Package nxgraph runs scientific processing pipelines over an in-memory,
// hierarchical data structure.
//
// A pipeline is a list of filters. Every filter is run twice: a preflight
// against a structural copy of the data, which checks the arguments and
// declares the arrays, groups and geometries the filter creates, and an
// execution that applies those changes for real and computes the data.
// A pipeline only executes when the preflight of every step passed.
//
// # Quick Start
//
//	reg := filter.NewRegistry()
//	_ = core.Register(reg)
//
//	p, _ := nxgraph.NewPipeline(nxgraph.WithLogLevel(slog.LevelDebug))
//	p.Append(core.NewScalarSegmentFeatures(), filter.Arguments{"tolerance": 0.5}).
//	  Append(core.NewFindNeighbors(), filter.Arguments{}).
//	  Append(core.NewWriteContainer(), filter.Arguments{"output_file": "out.nxg"})
//
//	ds := p.NewDataStructure()
//	// ... create an image geometry with a Data array ...
//	rep, err := p.Execute(ctx, ds, nil)
//
// # Packages
//
//   - graph: the data structure, its object kinds and paths
//   - datastore: typed, shaped, optionally chunked element storage
//   - action: structural changes applied in preflight or execute mode
//   - filter: the filter contract, parameters and registry
//   - filter/core: built-in filters
//   - dataio: the chunked container file format
//   - archive: numbered container versions in a blob store
//   - blobstore: local, memory, S3 and MinIO blob backends
//
// # Configuration
//
// LoadConfig reads a YAML file (or the file named by $NXGRAPH_CONFIG) with
// log, resource limit, progress and storage settings; pass it with
// WithConfig.
//
// # Errors
//
// Failed steps are reported as *StepError values. errors.Is matches
// ErrPreflightFailed or ErrExecuteFailed as well as the sentinel errors of
// the packages below, e.g. segment.ErrNoFeatures.
package nxgraph
