package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"rightskeeper/internal/domain"
	"rightskeeper/internal/report"
)

type recordingJSON struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Filename   string    `json:"filename"`
	DurationMs int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
	IncidentID string    `json:"incidentId,omitempty"`
}

func toRecordingJSON(recs []domain.Recording) []recordingJSON {
	out := make([]recordingJSON, 0, len(recs))
	for _, rec := range recs {
		item := recordingJSON{
			ID:         rec.ID,
			Name:       rec.DisplayName(),
			Filename:   rec.Filename,
			DurationMs: rec.Duration.Milliseconds(),
			CreatedAt:  rec.CreatedAt,
		}
		if rec.IncidentID != nil {
			item.IncidentID = *rec.IncidentID
		}
		out = append(out, item)
	}
	return out
}

func newRecordingsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recordings",
		Aliases: []string{"rec"},
		Short:   "Manage saved recordings",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recordings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := e.open()
			if err != nil {
				return err
			}
			recs, err := services.Catalog.List(cmd.Context())
			if err != nil {
				return err
			}
			if e.jsonOut {
				return e.writeJSON(cmd.OutOrStdout(), toRecordingJSON(recs))
			}
			printRecordings(cmd.OutOrStdout(), recs)
			return nil
		},
	}

	rename := &cobra.Command{
		Use:   "rename <id> [name...]",
		Short: "Rename a recording; without a name the default name is restored",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := e.open()
			if err != nil {
				return err
			}
			rec, err := services.Catalog.Rename(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", rec.ID, rec.DisplayName())
			return nil
		},
	}

	remove := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a recording and its audio file",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := e.open()
			if err != nil {
				return err
			}
			if err := services.Catalog.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Deleted recording %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, rename, remove)
	return cmd
}

func printRecordings(out io.Writer, recs []domain.Recording) {
	if len(recs) == 0 {
		dimColor.Fprintln(out, "No recordings")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDURATION\tRECORDED\tINCIDENT")
	for _, rec := range recs {
		incident := "-"
		if rec.IncidentID != nil {
			incident = *rec.IncidentID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.ID,
			rec.DisplayName(),
			report.FormatDuration(rec.Duration),
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			incident,
		)
	}
	_ = w.Flush()
}
