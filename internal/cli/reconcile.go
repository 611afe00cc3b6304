package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReconcileCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Adopt orphaned audio files and retry pending deletions",
		Long: `reconcile compares the recordings directory with the catalog.

Audio files without a catalog entry are adopted as recordings, file
deletions that failed earlier are retried and catalog entries whose
file is gone are reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := e.open()
			if err != nil {
				return err
			}
			result, err := services.Reconciler.Sweep(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if e.jsonOut {
				return e.writeJSON(out, map[string]any{
					"adopted":        toRecordingJSON(result.Adopted),
					"deletesRetried": result.DeletesRetried,
					"deletesPending": result.DeletesPending,
					"missingFiles":   toRecordingJSON(result.MissingFiles),
				})
			}

			okColor.Fprintf(out, "Adopted %d orphaned file(s)\n", len(result.Adopted))
			for _, rec := range result.Adopted {
				fmt.Fprintf(out, "  %s  %s\n", rec.ID, rec.Filename)
			}
			fmt.Fprintf(out, "Retried %d pending deletion(s)\n", result.DeletesRetried)
			if result.DeletesPending > 0 {
				warnColor.Fprintf(out, "%d deletion(s) still pending\n", result.DeletesPending)
			}
			if len(result.MissingFiles) > 0 {
				warnColor.Fprintf(out, "%d recording(s) have no audio file\n", len(result.MissingFiles))
				for _, rec := range result.MissingFiles {
					fmt.Fprintf(out, "  %s  %s\n", rec.ID, rec.Filename)
				}
			}
			return nil
		},
	}
}
