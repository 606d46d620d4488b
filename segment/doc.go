// Package segment partitions a structured grid into connected features by
// flood fill.
//
// [Segment] scans for seeds in increasing linear index order and grows a
// region from every seed over the six face neighbors (-X, -Y, -Z, +X, +Y,
// +Z) using an explicit stack. Which elements may seed a feature and which
// neighbors join it is decided by a [Segmenter]. Feature IDs run from 1 to
// N; 0 marks background. Element 0 never seeds a feature, although it may
// join one during growth.
//
// [Randomize] permutes the IDs 1..N with a seeded Fisher-Yates shuffle so
// that adjacent features get visually distinct labels.
package segment
