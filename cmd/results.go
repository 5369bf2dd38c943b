package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/voxelssd/internal/store"
)

var (
	resultsDataDir string
	keepLast       int
	olderThanDays  int
	showJSON       bool
	forceClean     bool
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Manage stored analysis results",
	Long:  `List, inspect and clean results saved with "run --save".`,
}

var listResultsCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored results",
	Args:  cobra.NoArgs,
	RunE:  runListResults,
}

var showResultCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a stored result and its per-volume trace",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowResult,
}

var deleteResultCmd = &cobra.Command{
	Use:   "delete <run-id>...",
	Short: "Delete stored results",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDeleteResults,
}

var cleanResultsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old results",
	Long: `Delete results based on retention policy: keep only the newest N results
or delete results older than N days.`,
	Args: cobra.NoArgs,
	RunE: runCleanResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.AddCommand(listResultsCmd, showResultCmd, deleteResultCmd, cleanResultsCmd)

	resultsCmd.PersistentFlags().StringVar(&resultsDataDir, "data-dir", "./data", "Base directory for stored results")

	showResultCmd.Flags().BoolVar(&showJSON, "json", false, "Print the stored result as JSON")

	cleanResultsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N results (0 = keep all)")
	cleanResultsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete results older than N days (0 = no age limit)")
	cleanResultsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func openResultStore() (*store.FSStore, error) {
	resultStore, err := store.NewFSStore(resultsDataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create result store: %w", err)
	}
	return resultStore, nil
}

func runListResults(cmd *cobra.Command, args []string) error {
	resultStore, err := openResultStore()
	if err != nil {
		return err
	}

	infos, err := resultStore.ListResults()
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tCREATED\tVOLUMES\tMAX SSD\tOUTLIERS\tSIZE\tSOURCE")
	fmt.Fprintln(w, "------\t-------\t-------\t-------\t--------\t----\t------")

	for _, info := range infos {
		sizeStr := "unknown"
		if size, err := resultStore.DirSize(info.RunID); err == nil {
			sizeStr = formatBytes(size)
		}

		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			shortID(info.RunID),
			info.CreatedAt.Format("2006-01-02 15:04:05"),
			info.NumImages,
			info.MaxSSD,
			info.Outliers,
			sizeStr,
			info.Source,
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal results: %d\n", len(infos))
	return nil
}

func runShowResult(cmd *cobra.Command, args []string) error {
	resultStore, err := openResultStore()
	if err != nil {
		return err
	}

	result, err := resultStore.LoadResult(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if showJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(out, "run: %s\nsource: %s\ncreated: %s\n",
		result.RunID, result.Source, result.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "shape: header %d bytes, %d volumes of %d voxels\n",
		result.Shape.HeaderSize, result.Shape.NumImages, result.Shape.ImgSize)
	fmt.Fprintf(out, "kernel: %s, workers: %d, elapsed: %s\n", result.Kernel, result.Workers, result.Elapsed)
	printResult(out, result, false)

	entries, err := store.ReadTrace(resultStore.BaseDir(), result.RunID)
	if err != nil {
		slog.Warn("Trace unavailable", "run_id", result.RunID, "error", err)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nVOLUME\tSSD\tFLAG")
	for _, e := range entries {
		flag := ""
		if e.Outlier {
			flag = "*"
		}
		fmt.Fprintf(w, "%d\t%d\t%s\n", e.Volume, e.SSD, flag)
	}
	return w.Flush()
}

func runDeleteResults(cmd *cobra.Command, args []string) error {
	resultStore, err := openResultStore()
	if err != nil {
		return err
	}

	for _, runID := range args {
		if err := resultStore.DeleteResult(runID); err != nil {
			return fmt.Errorf("failed to delete %s: %w", runID, err)
		}
		slog.Info("Deleted result", "run_id", runID)
	}
	return nil
}

func runCleanResults(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	resultStore, err := openResultStore()
	if err != nil {
		return err
	}

	infos, err := resultStore.ListResults()
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}

	out := cmd.OutOrStdout()
	toDelete := selectResultsForDeletion(infos, keepLast, olderThanDays, time.Now())
	if len(toDelete) == 0 {
		fmt.Fprintln(out, "No results match deletion criteria.")
		return nil
	}

	fmt.Fprintf(out, "Found %d result(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Fprintf(out, "  - %s (%s, %s)\n", shortID(info.RunID), info.Source, info.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	if !forceClean {
		fmt.Fprint(out, "\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Fscanln(cmd.InOrStdin(), &response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	deleted, failed := 0, 0
	for _, info := range toDelete {
		if err := resultStore.DeleteResult(info.RunID); err != nil {
			slog.Error("Failed to delete result", "run_id", info.RunID, "error", err)
			failed++
			continue
		}
		slog.Info("Deleted result", "run_id", info.RunID)
		deleted++
	}

	fmt.Fprintf(out, "\nDeleted %d result(s), %d failed.\n", deleted, failed)
	return nil
}

// selectResultsForDeletion applies the retention policy: results older than
// olderThanDays, plus everything beyond the newest keepLast.
func selectResultsForDeletion(infos []store.ResultInfo, keepLast, olderThanDays int, now time.Time) []store.ResultInfo {
	sorted := make([]store.ResultInfo, len(infos))
	copy(sorted, infos)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	cutoff := now.AddDate(0, 0, -olderThanDays)

	var toDelete []store.ResultInfo
	for i, info := range sorted {
		tooOld := olderThanDays > 0 && info.CreatedAt.Before(cutoff)
		beyondKeep := keepLast > 0 && i >= keepLast
		if tooOld || beyondKeep {
			toDelete = append(toDelete, info)
		}
	}
	return toDelete
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
