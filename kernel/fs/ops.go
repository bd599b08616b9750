package fs

import "ttyos/kernel"

// DirectoryOps is the operation table for directory descriptors. Each read
// returns the name of the next directory entry.
type DirectoryOps struct {
	FS FileSystem
}

// Open implements FileOps.
func (DirectoryOps) Open(*File, string) *kernel.Error { return nil }

// Close implements FileOps.
func (DirectoryOps) Close(*File) *kernel.Error { return nil }

// Read copies the name of the next directory entry into p, truncated to
// len(p), and returns its length. It returns 0 once every entry was read.
func (ops DirectoryOps) Read(f *File, p []byte) (int, *kernel.Error) {
	d, err := ops.FS.LookupByIndex(int(f.Pos))
	if err != nil {
		return 0, nil
	}
	f.Pos++

	return copy(p, d.Name), nil
}

// Write implements FileOps. Directories cannot be written.
func (DirectoryOps) Write(*File, []byte) (int, *kernel.Error) { return 0, errReadOnly }

// RegularOps is the operation table for regular file descriptors.
type RegularOps struct {
	FS FileSystem
}

// Open implements FileOps.
func (RegularOps) Open(*File, string) *kernel.Error { return nil }

// Close implements FileOps.
func (RegularOps) Close(*File) *kernel.Error { return nil }

// Read copies file data at the cursor into p and advances the cursor.
func (ops RegularOps) Read(f *File, p []byte) (int, *kernel.Error) {
	n, err := ops.FS.ReadData(f.Inode, f.Pos, p)
	if err != nil {
		return 0, err
	}

	f.Pos += uint32(n)
	return n, nil
}

// Write implements FileOps. Files cannot be written.
func (RegularOps) Write(*File, []byte) (int, *kernel.Error) { return 0, errReadOnly }
