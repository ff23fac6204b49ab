package lsmtable

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/vfs"
)

// FileObject is a persisted, read-only table file.
type FileObject struct {
	f    vfs.File
	name string
	size int64
}

// CreateFile writes data to a new file at path, syncs it and returns a
// readable handle.
func CreateFile(fs vfs.FS, path string, data []byte) (*FileObject, error) {
	f, err := fs.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "lsmtable: create %s", path)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "lsmtable: write %s", path)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "lsmtable: sync %s", path)
	}
	if err := f.Close(); err != nil {
		return nil, errors.Wrapf(err, "lsmtable: close %s", path)
	}
	return OpenFile(fs, path)
}

// OpenFile opens an existing file for reading.
func OpenFile(fs vfs.FS, path string) (*FileObject, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "lsmtable: open %s", path)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "lsmtable: stat %s", path)
	}
	return &FileObject{f: f, name: path, size: fi.Size()}, nil
}

// Name returns the file path.
func (o *FileObject) Name() string { return o.name }

// Size returns the file size in bytes.
func (o *FileObject) Size() int64 { return o.size }

// Read reads length bytes at offset.
func (o *FileObject) Read(offset int64, length int) ([]byte, error) {
	p := make([]byte, length)
	if err := o.ReadInto(p, offset); err != nil {
		return nil, err
	}
	return p, nil
}

// ReadInto fills p with the bytes at offset.
func (o *FileObject) ReadInto(p []byte, offset int64) error {
	if o.f == nil {
		return errClosed
	}
	if offset < 0 || offset+int64(len(p)) > o.size {
		return corruptionErrorf("lsmtable: read [%d,%d) beyond end of %s (%d bytes)",
			offset, offset+int64(len(p)), o.name, o.size)
	}
	if _, err := o.f.ReadAt(p, offset); err != nil {
		return errors.Wrapf(err, "lsmtable: read %s", o.name)
	}
	return nil
}

// Close closes the file.
func (o *FileObject) Close() error {
	if o.f == nil {
		return errClosed
	}
	err := o.f.Close()
	o.f = nil
	return err
}
