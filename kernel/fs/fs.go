// Package fs defines the read-only file system interface consumed by the
// kernel, the open file descriptor entry and the operation tables bound to
// descriptors at open time.
package fs

import "ttyos/kernel"

// FileKind identifies the type of a directory entry.
type FileKind uint32

const (
	// KindRTC is the real-time clock character device.
	KindRTC FileKind = iota

	// KindDirectory is the (single) directory of the file system.
	KindDirectory

	// KindRegular is a regular file.
	KindRegular
)

// String returns the name of the file kind.
func (k FileKind) String() string {
	switch k {
	case KindRTC:
		return "rtc"
	case KindDirectory:
		return "directory"
	case KindRegular:
		return "file"
	default:
		return "unknown"
	}
}

// MaxNameLen is the maximum length of a file name.
const MaxNameLen = 32

var (
	errNotFound  = &kernel.Error{Module: "fs", Message: "no such file", Kind: kernel.NotFound}
	errBadName   = &kernel.Error{Module: "fs", Message: "invalid file name", Kind: kernel.NotFound}
	errBadInode  = &kernel.Error{Module: "fs", Message: "inode out of range", Kind: kernel.InvalidArgument}
	errBadBlock  = &kernel.Error{Module: "fs", Message: "data block out of range", Kind: kernel.InvalidFormat}
	errReadOnly  = &kernel.Error{Module: "fs", Message: "file system is read-only", Kind: kernel.PermissionDenied}
	errBadImage  = &kernel.Error{Module: "fs", Message: "malformed file system image", Kind: kernel.InvalidFormat}
	errImageFull = &kernel.Error{Module: "fs", Message: "too many directory entries", Kind: kernel.ResourceExhausted}
	errTooLarge  = &kernel.Error{Module: "fs", Message: "file exceeds the maximum inode size", Kind: kernel.ResourceExhausted}
)

// Dentry is a directory entry.
type Dentry struct {
	Name  string
	Kind  FileKind
	Inode uint32
}

// FileSystem is implemented by read-only file system drivers.
type FileSystem interface {
	// LookupByName returns the directory entry for name.
	LookupByName(name string) (Dentry, *kernel.Error)

	// LookupByIndex returns the index-th directory entry.
	LookupByIndex(index int) (Dentry, *kernel.Error)

	// ReadData copies up to len(p) bytes of inode starting at offset into
	// p and returns the number of bytes copied. Reading at or past the end
	// of the file returns 0.
	ReadData(inode, offset uint32, p []byte) (int, *kernel.Error)

	// Length returns the size of inode in bytes.
	Length(inode uint32) (uint32, *kernel.Error)
}

// FileOps is the operation table bound to a descriptor when it is opened.
type FileOps interface {
	Open(f *File, name string) *kernel.Error
	Close(f *File) *kernel.Error
	Read(f *File, p []byte) (int, *kernel.Error)
	Write(f *File, p []byte) (int, *kernel.Error)
}

// File is an entry of a process descriptor table.
type File struct {
	Ops   FileOps
	Inode uint32

	// Pos is the byte cursor for regular files and the entry index for
	// directories.
	Pos uint32

	InUse bool

	// Session is the terminal session of the owning process.
	Session int
}

// Reset clears the entry.
func (f *File) Reset() {
	*f = File{}
}
