// Package volume loads 4D voxel time series from raw binary sources.
//
// A source is an opaque header of HeaderSize bytes followed by NumImages
// concatenated 3D volumes of ImgSize signed 16-bit samples each, stored in
// the host's native byte order with no padding between volumes.
package volume

import "math"

// SampleWidth is the only supported sample size in bytes (signed 16-bit).
const SampleWidth = 2

// Dims are the spatial dimensions of one 3D volume.
type Dims struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	Z int `json:"z" yaml:"z"`
}

// Voxels returns X*Y*Z.
func (d Dims) Voxels() int {
	return d.X * d.Y * d.Z
}

// Shape describes how a source is laid out. The values are supplied by the
// caller and are not checked against any metadata inside the header.
type Shape struct {
	HeaderSize  int64 `json:"headerSize" yaml:"headerSize"`
	ImgSize     int   `json:"imgSize" yaml:"imgSize"`
	NumImages   int   `json:"numImages" yaml:"numImages"`
	SampleWidth int   `json:"sampleWidth" yaml:"sampleWidth"`
}

// Validate reports a precondition violation for unusable parameters.
func (s Shape) Validate() error {
	switch {
	case s.HeaderSize < 0:
		return Precondition("shape", "header size %d is negative", s.HeaderSize)
	case s.ImgSize < 1:
		return Precondition("shape", "image size %d must be at least 1", s.ImgSize)
	case s.NumImages < 1:
		return Precondition("shape", "image count %d must be at least 1", s.NumImages)
	case s.SampleWidth != SampleWidth:
		return Precondition("shape", "sample width %d unsupported (want %d)", s.SampleWidth, SampleWidth)
	}
	if int64(s.ImgSize) > math.MaxInt64/int64(s.NumImages)/int64(s.SampleWidth) {
		return Precondition("shape", "%d images of %d samples overflow the payload size", s.NumImages, s.ImgSize)
	}
	return nil
}

// Samples returns NumImages*ImgSize.
func (s Shape) Samples() int64 {
	return int64(s.NumImages) * int64(s.ImgSize)
}

// PayloadBytes returns the number of bytes expected after the header.
func (s Shape) PayloadBytes() int64 {
	return s.Samples() * int64(s.SampleWidth)
}

// VoxelBuffer owns the samples of a whole series. Volume j occupies
// samples [j*ImgSize, (j+1)*ImgSize).
type VoxelBuffer struct {
	samples []int16
	imgSize int
	release func()
}

// NewVoxelBuffer takes ownership of samples. The length must be a non-zero
// multiple of imgSize; partial volumes are rejected.
func NewVoxelBuffer(samples []int16, imgSize int) (*VoxelBuffer, error) {
	if imgSize < 1 {
		return nil, Precondition("buffer", "image size %d must be at least 1", imgSize)
	}
	if len(samples) == 0 || len(samples)%imgSize != 0 {
		return nil, Precondition("buffer", "%d samples is not a whole number of %d-sample volumes", len(samples), imgSize)
	}
	return &VoxelBuffer{samples: samples, imgSize: imgSize}, nil
}

// Len returns the total number of samples.
func (b *VoxelBuffer) Len() int { return len(b.samples) }

// ImgSize returns the number of samples per volume.
func (b *VoxelBuffer) ImgSize() int { return b.imgSize }

// NumVolumes returns the number of whole volumes in the buffer.
func (b *VoxelBuffer) NumVolumes() int { return len(b.samples) / b.imgSize }

// Samples exposes the backing slice. Callers must not modify it.
func (b *VoxelBuffer) Samples() []int16 { return b.samples }

// Volume returns the samples of volume j. The slice has its capacity
// clipped so appends cannot spill into the next volume.
func (b *VoxelBuffer) Volume(j int) ([]int16, error) {
	if j < 0 || j >= b.NumVolumes() {
		return nil, Precondition("volume", "index %d out of range [0, %d)", j, b.NumVolumes())
	}
	lo, hi := j*b.imgSize, (j+1)*b.imgSize
	return b.samples[lo:hi:hi], nil
}

// Release drops the samples and returns their share of the reader's
// memory budget. The buffer must not be used afterwards.
func (b *VoxelBuffer) Release() {
	if b.release != nil {
		b.release()
		b.release = nil
	}
	b.samples = nil
}
