// Package ssd computes the sum of squared differences between the reference
// volume of a voxel series and every other volume.
//
// The reference is always volume 0. For a series of N volumes the result
// has N-1 entries and entry k compares the reference with volume k+1.
package ssd

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/voxelssd/internal/volume"
)

// maxOutput bounds the result length so the output slice can be allocated.
const maxOutput = math.MaxInt32

func checkShape(buffer []int16, numImages, imgSize int) error {
	if numImages < 2 {
		return volume.Precondition("compute_ssd", "need at least 2 images, got %d", numImages)
	}
	if imgSize < 1 {
		return volume.Precondition("compute_ssd", "image size %d must be at least 1", imgSize)
	}
	if numImages > len(buffer)/imgSize || len(buffer) != numImages*imgSize {
		return volume.Precondition("compute_ssd", "buffer has %d samples, want %d images of %d", len(buffer), numImages, imgSize)
	}
	if numImages-1 > maxOutput {
		return volume.Allocation("compute_ssd", "%d results cannot be allocated", numImages-1)
	}
	return nil
}

// Compute returns the SSD of every volume against volume 0.
//
// buffer must hold exactly numImages*imgSize samples. It is only read.
func Compute(buffer []int16, numImages, imgSize int) ([]int64, error) {
	if err := checkShape(buffer, numImages, imgSize); err != nil {
		return nil, err
	}

	ref := buffer[:imgSize:imgSize]
	out := make([]int64, numImages-1)
	for j := 1; j < numImages; j++ {
		out[j-1] = pairSSD(ref, buffer[j*imgSize:(j+1)*imgSize])
	}
	return out, nil
}

// ComputeParallel is Compute with volumes spread over up to workers
// goroutines (workers <= 0 uses GOMAXPROCS). Each goroutine writes only its
// own output slots. If ctx is cancelled no result is returned.
func ComputeParallel(ctx context.Context, buffer []int16, numImages, imgSize, workers int) ([]int64, error) {
	if err := checkShape(buffer, numImages, imgSize); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ref := buffer[:imgSize:imgSize]
	out := make([]int64, numImages-1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for j := 1; j < numImages; j++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[j-1] = pairSSD(ref, buffer[j*imgSize:(j+1)*imgSize])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Reducer runs the SSD reduction over a VoxelBuffer.
type Reducer struct {
	// Workers is the number of goroutines used. 0 or 1 runs sequentially;
	// a negative value uses GOMAXPROCS.
	Workers int
}

// Reduce computes the SSD vector for buf.
func (r Reducer) Reduce(ctx context.Context, buf *volume.VoxelBuffer) ([]int64, error) {
	start := time.Now()

	var (
		out []int64
		err error
	)
	if r.Workers == 0 || r.Workers == 1 {
		out, err = Compute(buf.Samples(), buf.NumVolumes(), buf.ImgSize())
	} else {
		out, err = ComputeParallel(ctx, buf.Samples(), buf.NumVolumes(), buf.ImgSize(), r.Workers)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("Computed SSD vector",
		"volumes", buf.NumVolumes(),
		"img_size", buf.ImgSize(),
		"workers", r.Workers,
		"kernel", ActiveKernel.String(),
		"elapsed", time.Since(start),
	)
	return out, nil
}
