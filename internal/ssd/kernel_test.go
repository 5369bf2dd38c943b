package ssd

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestKernels_Equivalent checks that every kernel matches the naive loop,
// including lengths that exercise the remainder loops.
func TestKernels_Equivalent(t *testing.T) {
	kernels := map[string]func(a, b []int16) int64{
		"naive":     ssdNaive,
		"unrolled4": ssdUnrolled4,
		"unrolled8": ssdUnrolled8,
	}

	for _, n := range []int{0, 1, 3, 4, 7, 8, 9, 15, 16, 17, 1000, 4099} {
		series := randomSeries(2, n, int64(n)+1)
		a, b := series[:n], series[n:]
		want := ssdNaive(a, b)

		for name, k := range kernels {
			t.Run(fmt.Sprintf("%s/n=%d", name, n), func(t *testing.T) {
				assert.Equal(t, want, k(a, b))
			})
		}
	}
}

func TestSetKernel(t *testing.T) {
	prev := ActiveKernel
	defer SetKernel(prev)

	a := []int16{1, 2, 3, 4, 5, 6, 7, 8, 9}
	b := []int16{9, 8, 7, 6, 5, 4, 3, 2, 1}
	want := ssdNaive(a, b)

	for _, k := range []Kernel{KernelNaive, KernelUnrolled4, KernelUnrolled8} {
		SetKernel(k)
		assert.Equal(t, k, ActiveKernel)
		assert.Equal(t, want, Pair(a, b), k.String())
	}

	SetKernel(Kernel(42))
	assert.Equal(t, KernelUnrolled4, ActiveKernel)
	assert.Equal(t, "unknown", Kernel(42).String())
}

func TestPair_LengthMismatch(t *testing.T) {
	assert.Panics(t, func() { Pair([]int16{1}, []int16{1, 2}) })
}

func BenchmarkPair(b *testing.B) {
	const imgSize = 64 * 64 * 34
	series := randomSeries(2, imgSize, 1)
	x, y := series[:imgSize], series[imgSize:]

	for _, k := range []Kernel{KernelNaive, KernelUnrolled4, KernelUnrolled8} {
		b.Run(k.String(), func(b *testing.B) {
			prev := ActiveKernel
			SetKernel(k)
			defer SetKernel(prev)

			b.SetBytes(int64(imgSize * 2 * 2))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				Pair(x, y)
			}
		})
	}
}

func BenchmarkCompute(b *testing.B) {
	const numImages, imgSize = 200, 64 * 64 * 34
	buf := randomSeries(numImages, imgSize, 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Compute(buf, numImages, imgSize); err != nil {
			b.Fatal(err)
		}
	}
}
