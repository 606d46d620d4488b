// Package fs abstracts the file system operations used by the container
// writer and the local blob store.
//
//   - [File] is an open file supporting sequential and positional I/O.
//   - [FileSystem] opens, removes, renames and stats files.
//   - [LocalFS] is the production implementation backed by package os.
//   - [FaultyFS] wraps another FileSystem and injects write, sync or close
//     failures so tests can exercise partial-write error paths.
//
// There is no context.Context here: local file operations are not
// interruptible at the syscall level. Remote storage goes through blobstore.
package fs
