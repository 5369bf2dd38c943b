package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/voxelssd/internal/config"
	"github.com/cwbudde/voxelssd/internal/ssd"
	"github.com/cwbudde/voxelssd/internal/stats"
	"github.com/cwbudde/voxelssd/internal/store"
	"github.com/cwbudde/voxelssd/internal/volume"
)

var (
	headerSize  int64
	dimX        int
	dimY        int
	dimZ        int
	imgSize     int
	numImages   int
	workers     int
	memoryLimit int64
	lenient     bool
	threshold   float64
	saveResult  bool
	dataDir     string
)

var runCmd = &cobra.Command{
	Use:   "run [series.nii]",
	Short: "Compute the SSD of every volume against the first",
	Long: `Reads the series, computes one SSD value per non-reference volume and
prints a summary. Flags override values from the configuration file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalysis,
}

func init() {
	runCmd.Flags().Int64Var(&headerSize, "header-size", config.DefaultHeaderSize, "Bytes to skip before voxel data")
	runCmd.Flags().IntVar(&dimX, "dim-x", config.DefaultDims.X, "Volume width in voxels")
	runCmd.Flags().IntVar(&dimY, "dim-y", config.DefaultDims.Y, "Volume height in voxels")
	runCmd.Flags().IntVar(&dimZ, "dim-z", config.DefaultDims.Z, "Volume depth in voxels")
	runCmd.Flags().IntVar(&imgSize, "img-size", 0, "Voxels per volume (overrides --dim-*)")
	runCmd.Flags().IntVar(&numImages, "num-images", config.DefaultNumImages, "Number of volumes in the series")
	runCmd.Flags().IntVar(&workers, "workers", 1, "Reduction goroutines (negative = all CPUs)")
	runCmd.Flags().Int64Var(&memoryLimit, "memory-limit", 0, "Maximum voxel buffer size in bytes (0 = unlimited)")
	runCmd.Flags().BoolVar(&lenient, "lenient", false, "Trust the file size when it disagrees with the shape")
	runCmd.Flags().Float64Var(&threshold, "threshold", 3.0, "Z-score above which a volume is flagged (0 = off)")
	runCmd.Flags().BoolVar(&saveResult, "save", false, "Persist the result under --data-dir")
	runCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Base directory for stored results")

	rootCmd.AddCommand(runCmd)
}

// resolveConfig loads the configuration file and applies flags that were
// set explicitly on the command line.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if len(args) == 1 {
		cfg.Input.Path = args[0]
	}
	if flags.Changed("header-size") {
		cfg.Input.HeaderSize = headerSize
	}
	if flags.Changed("dim-x") {
		cfg.Input.Dims.X = dimX
	}
	if flags.Changed("dim-y") {
		cfg.Input.Dims.Y = dimY
	}
	if flags.Changed("dim-z") {
		cfg.Input.Dims.Z = dimZ
	}
	if flags.Changed("img-size") {
		cfg.Input.Dims = volume.Dims{X: imgSize, Y: 1, Z: 1}
	}
	if flags.Changed("num-images") {
		cfg.Input.NumImages = numImages
	}
	if flags.Changed("workers") {
		cfg.Processing.Workers = workers
	}
	if flags.Changed("memory-limit") {
		cfg.Processing.MemoryLimit = memoryLimit
	}
	if flags.Changed("lenient") {
		cfg.Input.Strict = !lenient
	}
	if flags.Changed("threshold") {
		cfg.Analysis.OutlierThreshold = threshold
	}
	if flags.Changed("save") {
		cfg.Output.Save = saveResult
	}
	if flags.Changed("data-dir") {
		cfg.Output.DataDir = dataDir
	}

	if cfg.Input.Path == "" {
		return nil, fmt.Errorf("no input series: pass a path or set input.path in %s", configPath)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	result, err := analyze(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	if cfg.Output.Save {
		if err := persist(cfg.Output.DataDir, result); err != nil {
			return err
		}
	}

	printResult(cmd.OutOrStdout(), result, cfg.Output.Save)
	return nil
}

// analyze reads the configured series and reduces it to a Result.
func analyze(ctx context.Context, cfg *config.Config) (*store.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	shape := cfg.Shape()

	slog.Info("Starting analysis",
		"path", cfg.Input.Path,
		"header_size", shape.HeaderSize,
		"img_size", shape.ImgSize,
		"num_images", shape.NumImages,
		"strict", cfg.Input.Strict,
	)

	start := time.Now()
	reader := &volume.Reader{
		Budget: volume.NewBudget(cfg.Processing.MemoryLimit),
		Strict: cfg.Input.Strict,
	}
	buf, err := reader.ReadShape(cfg.Input.Path, shape)
	if err != nil {
		return nil, fmt.Errorf("failed to read series: %w", err)
	}
	defer buf.Release()

	slog.Info("Loaded series", "samples", buf.Len(), "volumes", buf.NumVolumes(), "elapsed", time.Since(start))

	values, err := ssd.Reducer{Workers: cfg.Processing.Workers}.Reduce(ctx, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to compute ssd: %w", err)
	}

	// The lenient reader may have derived a different volume count.
	shape.NumImages = buf.NumVolumes()

	result := store.NewResult(cfg.Input.Path, shape, values, stats.Summarize(values, cfg.Analysis.OutlierThreshold))
	result.Kernel = ssd.ActiveKernel.String()
	result.Workers = cfg.Processing.Workers
	result.Elapsed = time.Since(start)

	slog.Info("Analysis complete",
		"run_id", result.RunID,
		"elapsed", result.Elapsed,
		"outliers", len(result.Summary.Outliers),
	)
	return result, nil
}

func persist(baseDir string, result *store.Result) error {
	resultStore, err := store.NewFSStore(baseDir)
	if err != nil {
		return fmt.Errorf("failed to create result store: %w", err)
	}
	if err := resultStore.SaveResult(result); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	if err := store.WriteTrace(baseDir, result); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}
	return nil
}

func printResult(w io.Writer, result *store.Result, saved bool) {
	s := result.Summary
	fmt.Fprintf(w, "ssd_first: %d\n", s.First)
	fmt.Fprintf(w, "ssd_last: %d\n", s.Last)
	fmt.Fprintf(w, "min: %d (volume %d)  max: %d (volume %d)\n", s.Min, s.MinVolume, s.Max, s.MaxVolume)
	fmt.Fprintf(w, "mean: %.1f  stddev: %.1f\n", s.Mean, s.StdDev)
	if len(s.Outliers) > 0 {
		fmt.Fprintf(w, "outliers (z > %.2f):\n", s.Threshold)
		for _, o := range s.Outliers {
			fmt.Fprintf(w, "  volume %d: ssd %d (z %.2f)\n", o.Volume, o.SSD, o.ZScore)
		}
	}
	if saved {
		fmt.Fprintf(w, "saved run %s\n", result.RunID)
	}
}
