package blobstore

import (
	"errors"
	"strings"
)

// ContainerSuffix ends the names of container blobs.
const ContainerSuffix = ".nxg"

// Content types object stores record for the blobs they write.
const (
	ContentTypeContainer = "application/vnd.nxgraph.container"
	ContentTypePointer   = "text/plain; charset=utf-8"
	ContentTypeBinary    = "application/octet-stream"
)

// ErrChanged is returned by reads of a remote blob that was replaced after
// it was opened. Container offsets are only meaningful within one version.
var ErrChanged = errors.New("blobstore: blob changed since open")

// ContentTypeOf returns the content type for name: containers by suffix,
// extensionless names such as CURRENT as text pointers.
func ContentTypeOf(name string) string {
	base := name[strings.LastIndexByte(name, '/')+1:]
	switch {
	case strings.HasSuffix(base, ContainerSuffix):
		return ContentTypeContainer
	case !strings.Contains(base, "."):
		return ContentTypePointer
	default:
		return ContentTypeBinary
	}
}
