package volume

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeValidate(t *testing.T) {
	valid := Shape{HeaderSize: 5728, ImgSize: Dims{64, 64, 34}.Voxels(), NumImages: 200, SampleWidth: 2}
	require.NoError(t, valid.Validate())
	assert.Equal(t, int64(139264*200*2), valid.PayloadBytes())

	tests := []struct {
		name  string
		shape Shape
	}{
		{"NegativeHeader", Shape{HeaderSize: -1, ImgSize: 1, NumImages: 1, SampleWidth: 2}},
		{"ZeroImgSize", Shape{ImgSize: 0, NumImages: 1, SampleWidth: 2}},
		{"ZeroImages", Shape{ImgSize: 1, NumImages: 0, SampleWidth: 2}},
		{"WideSamples", Shape{ImgSize: 1, NumImages: 1, SampleWidth: 4}},
		{"Overflow", Shape{ImgSize: 1 << 40, NumImages: 1 << 30, SampleWidth: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.shape.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrPreconditionViolation))
		})
	}
}

func TestNewVoxelBuffer(t *testing.T) {
	buf, err := NewVoxelBuffer([]int16{1, 2, 3, 4, 5, 6}, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, buf.NumVolumes())

	v, err := buf.Volume(1)
	require.NoError(t, err)
	assert.Equal(t, []int16{4, 5, 6}, v)

	_, err = buf.Volume(2)
	assert.True(t, errors.Is(err, ErrPreconditionViolation))
	_, err = buf.Volume(-1)
	assert.True(t, errors.Is(err, ErrPreconditionViolation))

	_, err = NewVoxelBuffer([]int16{1, 2, 3, 4}, 3)
	assert.True(t, errors.Is(err, ErrPreconditionViolation))
	_, err = NewVoxelBuffer(nil, 3)
	assert.True(t, errors.Is(err, ErrPreconditionViolation))
	_, err = NewVoxelBuffer([]int16{1}, 0)
	assert.True(t, errors.Is(err, ErrPreconditionViolation))
}

func TestError_IsMatchesKind(t *testing.T) {
	err := &Error{Kind: KindShortRead, Op: "read", Path: "a.nii", Detail: "eof"}
	assert.True(t, errors.Is(err, ErrShortRead))
	assert.False(t, errors.Is(err, ErrResourceUnavailable))
	assert.Equal(t, "read: short read (a.nii): eof", err.Error())
	assert.Equal(t, "unknown", Kind(0).String())
}

func TestVoxelBuffer_Release(t *testing.T) {
	calls := 0
	buf, err := NewVoxelBuffer([]int16{1, 2}, 1)
	require.NoError(t, err)
	buf.release = func() { calls++ }

	buf.Release()
	buf.Release()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, buf.Len())
}
