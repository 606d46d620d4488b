// Package result carries the outcome of fallible pipeline operations.
//
// A [Result] holds a value together with every error and warning produced
// while computing it. Both lists may be non-empty at the same time; warnings
// never make a result invalid. Errors are classified into four kinds:
//
//   - KindStructural: name collisions, missing parents, dangling paths.
//   - KindValidation: shape, tuple-count or argument type mismatches.
//   - KindIO: serialization read and write failures.
//   - KindAlgorithm: numeric failures such as a segmentation without features.
//
// Packages declare their sentinels with [Sentinel] so any Go error can be
// classified by [KindOf] and converted with [FromError].
package result
