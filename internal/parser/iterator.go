package parser

import (
	"errors"
	"iter"

	"github.com/ossyrian/ba2extract/internal/ba2"
	"github.com/ossyrian/ba2extract/internal/dds"
)

// File is one extracted archive entry. Data belongs to the caller.
type File struct {
	Index int
	Path  string
	Data  []byte
}

// SkippedRecord describes a record the iterator did not emit.
type SkippedRecord struct {
	Index int
	Path  string
	Err   error
}

type iterState int

const (
	stateIdle iterState = iota
	stateActive
	stateExhausted
)

// FileIterator yields the files of an archive in record order.
//
// Each iterator owns its name table cursor, so several iterators over the
// same Archive may run concurrently. Textures with an unsupported pixel format
// are skipped and reported through Skipped unless the archive was opened with
// StrictFormats. Any other error stops the iteration.
type FileIterator struct {
	archive *Archive
	names   *ba2.NameReader
	next    int
	state   iterState

	file    File
	err     error
	skipped []SkippedRecord
}

// Files starts a new pass over the archive.
func (a *Archive) Files() *FileIterator {
	return &FileIterator{
		archive: a,
		names:   a.newNameReader(),
	}
}

// Next advances to the next file. It returns false once the records are
// exhausted or an error occurred; check Err to tell them apart.
func (it *FileIterator) Next() bool {
	if it.state == stateExhausted {
		return false
	}
	it.state = stateActive

	for it.next < it.archive.Len() {
		index := it.next
		it.next++

		name, err := it.names.Next()
		if err != nil {
			return it.fail(&ba2.RecordError{Index: index, Err: err})
		}

		data, err := it.archive.Extract(index)
		if err != nil {
			if errors.Is(err, dds.ErrUnsupportedFormat) && !it.archive.strict {
				it.archive.logger.Warn("skipping texture with unsupported pixel format",
					"index", index,
					"path", name,
					"error", err,
				)
				it.skipped = append(it.skipped, SkippedRecord{Index: index, Path: name, Err: err})
				continue
			}
			return it.fail(err)
		}

		it.file = File{Index: index, Path: name, Data: data}
		return true
	}

	it.state = stateExhausted
	it.file = File{}
	return false
}

func (it *FileIterator) fail(err error) bool {
	it.err = err
	it.state = stateExhausted
	it.file = File{}
	return false
}

// File returns the file produced by the last successful call to Next.
func (it *FileIterator) File() File { return it.file }

// Err returns the error that stopped the iteration, if any.
func (it *FileIterator) Err() error { return it.err }

// Skipped returns the records skipped so far.
func (it *FileIterator) Skipped() []SkippedRecord { return it.skipped }

// All iterates over the archive's files. A terminal error is yielded once
// with a zero File.
func (a *Archive) All() iter.Seq2[File, error] {
	return func(yield func(File, error) bool) {
		it := a.Files()
		for it.Next() {
			if !yield(it.File(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield(File{}, err)
		}
	}
}
