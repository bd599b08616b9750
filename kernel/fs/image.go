package fs

import (
	"bytes"
	"encoding/binary"

	"ttyos/kernel"
)

const (
	// BlockSize is the size of the boot block, inodes and data blocks.
	BlockSize = 4096

	// MaxDentries is the number of directory entries in the boot block.
	MaxDentries = 63

	dentrySize      = 64
	bootHeaderSize  = 64
	maxInodeBlocks  = BlockSize/4 - 1
	dentryKindOff   = MaxNameLen
	dentryInodeOff  = MaxNameLen + 4
	inodeBlocksOff  = 4
	headerInodesOff = 4
	headerDataOff   = 8
)

// Image is a file system image in the boot module format: a boot block with
// the entry counts and up to 63 directory entries, followed by the inodes
// and the data blocks, each BlockSize bytes.
type Image struct {
	data []byte

	dirCount, inodeCount, dataCount uint32
}

// ParseImage validates data and returns the image it describes.
func ParseImage(data []byte) (*Image, *kernel.Error) {
	if len(data) < BlockSize {
		return nil, errBadImage
	}

	img := &Image{
		data:       data,
		dirCount:   binary.LittleEndian.Uint32(data),
		inodeCount: binary.LittleEndian.Uint32(data[headerInodesOff:]),
		dataCount:  binary.LittleEndian.Uint32(data[headerDataOff:]),
	}

	if img.dirCount > MaxDentries {
		return nil, errBadImage
	}

	if need := (1 + uint64(img.inodeCount) + uint64(img.dataCount)) * BlockSize; uint64(len(data)) < need {
		return nil, errBadImage
	}

	return img, nil
}

// Entries returns the number of directory entries.
func (img *Image) Entries() int {
	return int(img.dirCount)
}

// LookupByName implements FileSystem. Names are compared over at most
// MaxNameLen bytes.
func (img *Image) LookupByName(name string) (Dentry, *kernel.Error) {
	if len(name) == 0 || len(name) > MaxNameLen {
		return Dentry{}, errBadName
	}

	for i := 0; i < int(img.dirCount); i++ {
		if d := img.dentry(i); d.Name == name {
			return d, nil
		}
	}

	return Dentry{}, errNotFound
}

// LookupByIndex implements FileSystem.
func (img *Image) LookupByIndex(index int) (Dentry, *kernel.Error) {
	if index < 0 || index >= int(img.dirCount) {
		return Dentry{}, errNotFound
	}
	return img.dentry(index), nil
}

// Length implements FileSystem.
func (img *Image) Length(inode uint32) (uint32, *kernel.Error) {
	if inode >= img.inodeCount {
		return 0, errBadInode
	}
	return binary.LittleEndian.Uint32(img.inode(inode)), nil
}

// ReadData implements FileSystem.
func (img *Image) ReadData(inode, offset uint32, p []byte) (int, *kernel.Error) {
	length, err := img.Length(inode)
	if err != nil {
		return 0, err
	}

	if offset >= length {
		return 0, nil
	}

	if remaining := length - offset; uint32(len(p)) > remaining {
		p = p[:remaining]
	}

	var (
		blocks = img.inode(inode)[inodeBlocksOff:]
		read   int
	)

	for read < len(p) {
		blockIndex := offset / BlockSize
		if blockIndex >= maxInodeBlocks {
			return read, errBadBlock
		}

		block := binary.LittleEndian.Uint32(blocks[blockIndex*4:])
		if block >= img.dataCount {
			return read, errBadBlock
		}

		start := (1+img.inodeCount+block)*BlockSize + offset%BlockSize
		n := copy(p[read:], img.data[start:start+BlockSize-offset%BlockSize])
		read += n
		offset += uint32(n)
	}

	return read, nil
}

func (img *Image) inode(inode uint32) []byte {
	start := (1 + inode) * BlockSize
	return img.data[start : start+BlockSize]
}

func (img *Image) dentry(index int) Dentry {
	raw := img.data[bootHeaderSize+index*dentrySize:][:dentrySize]

	name := raw[:MaxNameLen]
	if end := bytes.IndexByte(name, 0); end >= 0 {
		name = name[:end]
	}

	return Dentry{
		Name:  string(name),
		Kind:  FileKind(binary.LittleEndian.Uint32(raw[dentryKindOff:])),
		Inode: binary.LittleEndian.Uint32(raw[dentryInodeOff:]),
	}
}

// Builder assembles file system images.
type Builder struct {
	entries []builderEntry
}

type builderEntry struct {
	name string
	kind FileKind
	data []byte
}

// NewBuilder returns a builder for an image that already contains the
// directory entry "." and the RTC device "rtc".
func NewBuilder() *Builder {
	return &Builder{
		entries: []builderEntry{
			{name: ".", kind: KindDirectory},
			{name: "rtc", kind: KindRTC},
		},
	}
}

// AddFile appends a regular file to the image.
func (b *Builder) AddFile(name string, data []byte) *Builder {
	b.entries = append(b.entries, builderEntry{name: name, kind: KindRegular, data: data})
	return b
}

// Build returns the encoded image.
func (b *Builder) Build() ([]byte, *kernel.Error) {
	if len(b.entries) > MaxDentries {
		return nil, errImageFull
	}

	var inodeCount, dataCount uint32
	for _, e := range b.entries {
		if len(e.name) == 0 || len(e.name) > MaxNameLen {
			return nil, errBadName
		}

		if e.kind != KindRegular {
			continue
		}

		blocks := uint32((len(e.data) + BlockSize - 1) / BlockSize)
		if blocks > maxInodeBlocks {
			return nil, errTooLarge
		}
		inodeCount++
		dataCount += blocks
	}

	var (
		out       = make([]byte, (1+inodeCount+dataCount)*BlockSize)
		nextInode uint32
		nextBlock uint32
	)

	binary.LittleEndian.PutUint32(out, uint32(len(b.entries)))
	binary.LittleEndian.PutUint32(out[headerInodesOff:], inodeCount)
	binary.LittleEndian.PutUint32(out[headerDataOff:], dataCount)

	for i, e := range b.entries {
		raw := out[bootHeaderSize+i*dentrySize:][:dentrySize]
		copy(raw, e.name)
		binary.LittleEndian.PutUint32(raw[dentryKindOff:], uint32(e.kind))

		if e.kind != KindRegular {
			continue
		}

		binary.LittleEndian.PutUint32(raw[dentryInodeOff:], nextInode)
		inode := out[(1+nextInode)*BlockSize:][:BlockSize]
		binary.LittleEndian.PutUint32(inode, uint32(len(e.data)))

		for blk, data := 0, e.data; len(data) != 0; blk++ {
			binary.LittleEndian.PutUint32(inode[inodeBlocksOff+blk*4:], nextBlock)
			n := copy(out[(1+inodeCount+nextBlock)*BlockSize:][:BlockSize], data)
			data = data[n:]
			nextBlock++
		}
		nextInode++
	}

	return out, nil
}
