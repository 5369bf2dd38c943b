package volume

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"
)

// readChunk is the number of samples decoded per read call.
const readChunk = 32 * 1024

// Reader loads voxel buffers from files.
type Reader struct {
	// Budget bounds the memory held by buffers from this reader (nil = unlimited).
	Budget *Budget

	// Strict rejects sources whose payload does not match the requested
	// shape. With Strict off the volume count is derived from the file size.
	Strict bool
}

// NewReader returns a strict reader with the given budget.
func NewReader(budget *Budget) *Reader {
	return &Reader{Budget: budget, Strict: true}
}

// ReadVolumeBuffer reads every sample after the first headerSize bytes of
// path. The payload must be an exact multiple of sampleWidth.
func ReadVolumeBuffer(path string, headerSize int64, sampleWidth int) ([]int16, error) {
	var r Reader
	return r.read(path, headerSize, sampleWidth, -1)
}

// ReadShape reads path and wraps the samples in a VoxelBuffer of
// shape.ImgSize-sample volumes.
func (r *Reader) ReadShape(path string, shape Shape) (*VoxelBuffer, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}

	expect := int64(-1)
	if r.Strict {
		expect = shape.PayloadBytes()
	}

	samples, err := r.read(path, shape.HeaderSize, shape.SampleWidth, expect)
	if err != nil {
		return nil, err
	}
	held := int64(len(samples)) * int64(shape.SampleWidth)

	if !r.Strict && int64(len(samples)) != shape.Samples() {
		slog.Warn("Payload does not match configured shape, trusting file size",
			"path", path,
			"samples", len(samples),
			"expected", shape.Samples(),
		)
	}

	buf, err := NewVoxelBuffer(samples, shape.ImgSize)
	if err != nil {
		r.Budget.release(held)
		var verr *Error
		if errors.As(err, &verr) {
			verr.Path = path
		}
		return nil, err
	}
	buf.release = func() { r.Budget.release(held) }
	return buf, nil
}

// read loads the payload of path. When expect >= 0 the payload must be
// exactly expect bytes.
func (r *Reader) read(path string, headerSize int64, sampleWidth int, expect int64) ([]int16, error) {
	start := time.Now()

	if headerSize < 0 {
		return nil, Precondition("read", "header size %d is negative", headerSize)
	}
	if sampleWidth != SampleWidth {
		return nil, Precondition("read", "sample width %d unsupported (want %d)", sampleWidth, SampleWidth)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: KindResourceUnavailable, Op: "read", Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &Error{Kind: KindResourceUnavailable, Op: "read", Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &Error{Kind: KindResourceUnavailable, Op: "read", Path: path, Detail: "not a regular file"}
	}

	payload := info.Size() - headerSize
	if payload < 0 {
		return nil, &Error{
			Kind:   KindShortRead,
			Op:     "read",
			Path:   path,
			Detail: fmt.Sprintf("file has %d bytes, header alone needs %d", info.Size(), headerSize),
		}
	}
	if rem := payload % int64(sampleWidth); rem != 0 {
		return nil, &Error{
			Kind:   KindShortRead,
			Op:     "read",
			Path:   path,
			Detail: fmt.Sprintf("payload of %d bytes ends with a partial %d-byte sample", payload, rem),
		}
	}
	if expect >= 0 && payload != expect {
		return nil, &Error{
			Kind:   KindPreconditionViolation,
			Op:     "read",
			Path:   path,
			Detail: fmt.Sprintf("payload is %d bytes, shape requires %d", payload, expect),
		}
	}

	count := payload / int64(sampleWidth)
	if count > int64(math.MaxInt)/int64(sampleWidth) {
		return nil, Allocation("read", "%d samples cannot be addressed", count)
	}
	if err := r.Budget.acquire(payload); err != nil {
		var verr *Error
		if errors.As(err, &verr) {
			verr.Path = path
		}
		return nil, err
	}

	samples, err := decodeSamples(f, headerSize, int(count))
	if err != nil {
		r.Budget.release(payload)
		if verr, ok := err.(*Error); ok {
			verr.Path = path
		}
		return nil, err
	}

	slog.Debug("Read volume buffer",
		"path", path,
		"samples", count,
		"bytes", payload,
		"elapsed", time.Since(start),
	)
	return samples, nil
}

// decodeSamples seeks past the header and decodes count native-order
// int16 samples.
func decodeSamples(f *os.File, headerSize int64, count int) ([]int16, error) {
	if _, err := f.Seek(headerSize, io.SeekStart); err != nil {
		return nil, &Error{Kind: KindResourceUnavailable, Op: "read", Err: err}
	}

	samples := make([]int16, count)
	raw := make([]byte, min(count, readChunk)*SampleWidth)

	for off := 0; off < count; {
		n := min(count-off, readChunk)
		chunk := raw[:n*SampleWidth]
		if _, err := io.ReadFull(f, chunk); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, &Error{
					Kind:   KindShortRead,
					Op:     "read",
					Detail: fmt.Sprintf("got fewer than %d of %d samples", off+n, count),
					Err:    err,
				}
			}
			return nil, &Error{Kind: KindResourceUnavailable, Op: "read", Err: err}
		}
		for i := 0; i < n; i++ {
			samples[off+i] = int16(binary.NativeEndian.Uint16(chunk[i*SampleWidth:]))
		}
		off += n
	}
	return samples, nil
}
