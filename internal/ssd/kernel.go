package ssd

import (
	"log/slog"

	"golang.org/x/sys/cpu"
)

// Kernel identifies the pairwise SSD implementation in use.
//
// All kernels accumulate in int64 and return bit-identical results; they
// differ only in loop shape.
type Kernel int

const (
	KernelNaive     Kernel = iota // one sample per iteration
	KernelUnrolled4               // 4-way unrolled (default)
	KernelUnrolled8               // 8-way unrolled, wide-issue CPUs
)

func (k Kernel) String() string {
	switch k {
	case KernelNaive:
		return "naive"
	case KernelUnrolled4:
		return "unrolled4"
	case KernelUnrolled8:
		return "unrolled8"
	default:
		return "unknown"
	}
}

// ActiveKernel reports which kernel was selected at initialization.
var ActiveKernel Kernel

var pairSSD func(a, b []int16) int64

func init() {
	// AVX2 and ASIMD both imply enough ALUs for the 8-way loop to pay off.
	if cpu.X86.HasAVX2 || cpu.ARM64.HasASIMD {
		SetKernel(KernelUnrolled8)
	} else {
		SetKernel(KernelUnrolled4)
	}
	slog.Debug("SSD kernel initialized", "kernel", ActiveKernel.String())
}

// SetKernel changes the active kernel (for benchmarking).
// It must not be called concurrently with a reduction.
func SetKernel(k Kernel) {
	switch k {
	case KernelNaive:
		pairSSD = ssdNaive
	case KernelUnrolled8:
		pairSSD = ssdUnrolled8
	default:
		k = KernelUnrolled4
		pairSSD = ssdUnrolled4
	}
	ActiveKernel = k
}

// Pair returns the sum of squared differences of a and b.
// The slices must have equal length.
func Pair(a, b []int16) int64 {
	if len(a) != len(b) {
		panic("ssd.Pair: length mismatch")
	}
	return pairSSD(a, b)
}

func ssdNaive(a, b []int16) int64 {
	var sum int64
	for i := range a {
		d := int64(a[i]) - int64(b[i])
		sum += d * d
	}
	return sum
}

func ssdUnrolled4(a, b []int16) int64 {
	n := len(a)
	b = b[:n]

	var s0, s1, s2, s3 int64
	i := 0
	for ; i+4 <= n; i += 4 {
		d0 := int64(a[i]) - int64(b[i])
		d1 := int64(a[i+1]) - int64(b[i+1])
		d2 := int64(a[i+2]) - int64(b[i+2])
		d3 := int64(a[i+3]) - int64(b[i+3])
		s0 += d0 * d0
		s1 += d1 * d1
		s2 += d2 * d2
		s3 += d3 * d3
	}
	for ; i < n; i++ {
		d := int64(a[i]) - int64(b[i])
		s0 += d * d
	}
	return s0 + s1 + s2 + s3
}

func ssdUnrolled8(a, b []int16) int64 {
	n := len(a)
	b = b[:n]

	var s0, s1, s2, s3 int64
	i := 0
	for ; i+8 <= n; i += 8 {
		// Differences of two int16 fit in int32 and their squares fit in
		// uint32, so pairs can be summed before widening.
		d0 := int32(a[i]) - int32(b[i])
		d1 := int32(a[i+1]) - int32(b[i+1])
		d2 := int32(a[i+2]) - int32(b[i+2])
		d3 := int32(a[i+3]) - int32(b[i+3])
		d4 := int32(a[i+4]) - int32(b[i+4])
		d5 := int32(a[i+5]) - int32(b[i+5])
		d6 := int32(a[i+6]) - int32(b[i+6])
		d7 := int32(a[i+7]) - int32(b[i+7])
		s0 += int64(uint32(d0*d0)) + int64(uint32(d4*d4))
		s1 += int64(uint32(d1*d1)) + int64(uint32(d5*d5))
		s2 += int64(uint32(d2*d2)) + int64(uint32(d6*d6))
		s3 += int64(uint32(d3*d3)) + int64(uint32(d7*d7))
	}
	for ; i < n; i++ {
		d := int64(a[i]) - int64(b[i])
		s0 += d * d
	}
	return s0 + s1 + s2 + s3
}
