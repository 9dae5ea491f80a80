package wal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"
)

var (
	// ErrCorrupted is returned when a complete frame fails its checksum or
	// does not decode.
	ErrCorrupted = errors.New("wal: corrupted entry")
	// ErrFailed is returned by every call after a rewrite left the log
	// without an open file.
	ErrFailed = errors.New("wal: log unusable")
)

// openFile is swapped in tests.
var openFile = os.OpenFile

// Op tags a record.
type Op byte

const (
	OpHeader Op = iota + 1
	OpPut
	OpDelete
)

// Record is one logical log entry. Header records carry the comparator name
// in Key.
type Record struct {
	Op    Op
	Key   []byte
	Value []byte
}

// Options control how appends reach the disk.
type Options struct {
	// Sync fsyncs after every append.
	Sync bool
}

// WAL represents a Write Ahead Log.
type WAL struct {
	mu   sync.Mutex
	f    *os.File
	path string
	opts Options
	size int64
	err  error
}

// Open opens or creates a WAL file.
func Open(path string, opts Options) (*WAL, error) {
	f, err := openFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &WAL{
		f:    f,
		path: path,
		opts: opts,
		size: st.Size(),
	}, nil
}

// Size returns the current file size in bytes.
func (w *WAL) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Append writes a record to the WAL.
func (w *WAL) Append(r Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}

	n, err := writeFrame(w.f, encode(r))
	w.size += int64(n)
	if err != nil {
		return err
	}
	if w.opts.Sync {
		return w.f.Sync()
	}
	return nil
}

// Iterate reads all records from the WAL calling handler for each.
//
// A frame cut short by the end of the file is a torn append: it is dropped
// and the file truncated to the last complete frame, so replay succeeds and
// later appends follow valid data.
func (w *WAL) Iterate(handler func(r Record) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}

	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	defer w.f.Seek(0, io.SeekEnd)

	rd := bufio.NewReader(w.f)
	lenBuf := make([]byte, 4)
	crcBuf := make([]byte, 4)
	var off int64
	for {
		// Format: Len(4) | Data(N) | CRC(4)
		if _, err := io.ReadFull(rd, lenBuf); err != nil {
			if err == io.EOF {
				return nil
			}
			return w.dropTail(off, err)
		}
		length := int64(binary.BigEndian.Uint32(lenBuf))
		if off+4+length+4 > w.size {
			return w.dropTail(off, io.ErrUnexpectedEOF)
		}

		data := make([]byte, length)
		if _, err := io.ReadFull(rd, data); err != nil {
			return w.dropTail(off, err)
		}
		if _, err := io.ReadFull(rd, crcBuf); err != nil {
			return w.dropTail(off, err)
		}
		if crc32.ChecksumIEEE(data) != binary.BigEndian.Uint32(crcBuf) {
			return fmt.Errorf("%w: checksum mismatch at offset %d", ErrCorrupted, off)
		}

		r, err := decode(data)
		if err != nil {
			return err
		}
		if err := handler(r); err != nil {
			return err
		}
		off += 4 + length + 4
	}
}

// dropTail truncates the log at off after a short read. Read errors other
// than a short read are returned as they are.
func (w *WAL) dropTail(off int64, err error) error {
	if err != io.ErrUnexpectedEOF && err != io.EOF {
		return err
	}
	if err := w.f.Truncate(off); err != nil {
		return fmt.Errorf("wal: drop torn tail: %w", err)
	}
	w.size = off
	return nil
}

// Rewrite atomically replaces the log with the records produced by fill.
// fill is called with an emit function; the new file is synced and renamed
// over the old one before Rewrite returns.
func (w *WAL) Rewrite(fill func(emit func(Record) error) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}

	tmpPath := w.path + ".rewrite"
	tmp, err := openFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	var size int64
	err = fill(func(r Record) error {
		n, err := writeFrame(tmp, encode(r))
		size += int64(n)
		return err
	})
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, w.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if dir, err := os.Open(filepath.Dir(w.path)); err == nil {
		dir.Sync()
		dir.Close()
	}

	// The old file is unlinked now; appending to it would lose records.
	f, err := openFile(w.path, os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		w.err = fmt.Errorf("%w: reopen after rewrite: %v", ErrFailed, err)
		return w.err
	}
	w.f.Close()
	w.f = f
	w.size = size
	return nil
}

func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

func writeFrame(wr io.Writer, data []byte) (int, error) {
	frame := make([]byte, 4+len(data)+4)
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[4:], data)
	binary.BigEndian.PutUint32(frame[4+len(data):], crc32.ChecksumIEEE(data))
	return wr.Write(frame)
}

// Record payload: Op(1) | KeyLen(uvarint) | Key | Value
func encode(r Record) []byte {
	buf := make([]byte, 1+binary.MaxVarintLen64+len(r.Key)+len(r.Value))
	buf[0] = byte(r.Op)
	n := 1 + binary.PutUvarint(buf[1:], uint64(len(r.Key)))
	n += copy(buf[n:], r.Key)
	n += copy(buf[n:], r.Value)
	return buf[:n]
}

func decode(data []byte) (Record, error) {
	if len(data) < 2 {
		return Record{}, ErrCorrupted
	}
	op := Op(data[0])
	if op < OpHeader || op > OpDelete {
		return Record{}, fmt.Errorf("%w: unknown op %d", ErrCorrupted, op)
	}
	klen, n := binary.Uvarint(data[1:])
	if n <= 0 || uint64(len(data)-1-n) < klen {
		return Record{}, ErrCorrupted
	}
	off := 1 + n
	return Record{
		Op:    op,
		Key:   data[off : off+int(klen)],
		Value: data[off+int(klen):],
	}, nil
}
