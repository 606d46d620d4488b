// Package mmap maps container files read-only so datasets can be decoded
// straight from the page cache.
//
//	m, err := mmap.Open("graph.nxg")
//	if err != nil { ... }
//	defer m.Close()
//	_ = m.Advise(mmap.AccessSequential)
//	n, err := m.ReadAt(buf, off)
//
// On platforms without mmap(2) the file is read into memory instead.
package mmap
