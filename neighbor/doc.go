// Package neighbor computes relations between segmented features.
//
// [FaceNeighbors] finds features that share at least one cell face.
// [FindCentroids] computes feature centroids and equivalent sphere
// diameters. [Neighborhoods] finds all feature pairs whose centroids lie
// within a distance criterion.
//
// Each worker accumulates into private state (pair counts or roaring
// bitmaps) that is merged on the calling goroutine after the parallel
// loop, so results do not depend on the number of workers.
package neighbor
