package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"rightskeeper/internal/domain"
	"rightskeeper/internal/report"
	"rightskeeper/internal/usecase"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

// parseDate accepts RFC 3339 or a local "YYYY-MM-DD[ HH:MM]" date.
// An empty value yields the zero time.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &domain.ValidationError{Field: "date", Message: fmt.Sprintf("unrecognized date %q", value)}
}

type incidentJSON struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Date         time.Time       `json:"date"`
	Location     string          `json:"location"`
	Agency       string          `json:"agency"`
	OfficerInfo  string          `json:"officerInfo"`
	Notes        string          `json:"notes"`
	LastEditedAt time.Time       `json:"lastEditedAt"`
	Recordings   []recordingJSON `json:"recordings,omitempty"`
}

func toIncidentJSON(incident domain.Incident) incidentJSON {
	return incidentJSON{
		ID:           incident.ID,
		Title:        incident.Title,
		Date:         incident.Date,
		Location:     incident.Location,
		Agency:       incident.Agency,
		OfficerInfo:  incident.OfficerInfo,
		Notes:        incident.Notes,
		LastEditedAt: incident.LastEditedAt,
	}
}

func newIncidentsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "incidents",
		Aliases: []string{"inc"},
		Short:   "Manage incident reports",
	}
	cmd.AddCommand(
		newIncidentListCommand(e),
		newIncidentCreateCommand(e),
		newIncidentShowCommand(e),
		newIncidentExportCommand(e),
		newIncidentDeleteCommand(e),
		newIncidentAttachCommand(e),
		newIncidentDetachCommand(e),
	)
	return cmd
}

func newIncidentListCommand(e *env) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List incidents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := e.open()
			if err != nil {
				return err
			}
			incidents, err := services.Incidents.List(cmd.Context(), search)
			if err != nil {
				return err
			}
			if e.jsonOut {
				out := make([]incidentJSON, 0, len(incidents))
				for _, incident := range incidents {
					out = append(out, toIncidentJSON(incident))
				}
				return e.writeJSON(cmd.OutOrStdout(), out)
			}
			printIncidents(cmd.OutOrStdout(), incidents)
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by title or notes")
	return cmd
}

func newIncidentCreateCommand(e *env) *cobra.Command {
	var input usecase.IncidentInput
	var date string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an incident report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := parseDate(date)
			if err != nil {
				return err
			}
			input.Date = parsed

			services, err := e.open()
			if err != nil {
				return err
			}
			incident, err := services.Incidents.Create(cmd.Context(), input)
			if err != nil {
				return err
			}
			if e.jsonOut {
				return e.writeJSON(cmd.OutOrStdout(), toIncidentJSON(incident))
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Created incident %s\n", incident.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&input.Title, "title", "", "incident title")
	cmd.Flags().StringVar(&date, "date", "", "date and time of the encounter (default now)")
	cmd.Flags().StringVar(&input.Location, "location", "", "where it happened")
	cmd.Flags().StringVar(&input.Agency, "agency", "", "agency involved")
	cmd.Flags().StringVar(&input.OfficerInfo, "officer", "", "officer name or badge number")
	cmd.Flags().StringVar(&input.Notes, "notes", "", "free-form notes")
	return cmd
}

func newIncidentShowCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an incident and its recordings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := e.open()
			if err != nil {
				return err
			}
			incident, err := services.Incidents.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			recs, err := services.Incidents.Recordings(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if e.jsonOut {
				out := toIncidentJSON(incident)
				out.Recordings = toRecordingJSON(recs)
				return e.writeJSON(cmd.OutOrStdout(), out)
			}
			printIncident(cmd.OutOrStdout(), incident, recs)
			return nil
		},
	}
}

func newIncidentExportCommand(e *env) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export an incident report as PDF or HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			services, err := e.open()
			if err != nil {
				return err
			}
			incident, err := services.Incidents.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			path := output
			if path == "" {
				path = report.FileName(incident, f)
			} else if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
				path = filepath.Join(path, report.FileName(incident, f))
			}

			file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			_, err = services.Incidents.Export(cmd.Context(), incident.ID, f, file)
			if closeErr := file.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				_ = os.Remove(path)
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Exported %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "pdf", "report format (pdf, html)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file or directory (default ./Incident_Report_<date>_<id>.<format>)")
	return cmd
}

func newIncidentDeleteCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an incident; its recordings are kept and detached",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := e.open()
			if err != nil {
				return err
			}
			if err := services.Incidents.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Deleted incident %s\n", args[0])
			return nil
		},
	}
}

func newIncidentAttachCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <incident-id> <recording-id>",
		Short: "Attach a recording to an incident",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := e.open()
			if err != nil {
				return err
			}
			if err := services.Incidents.AttachRecording(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Attached recording %s to incident %s\n", args[1], args[0])
			return nil
		},
	}
}

func newIncidentDetachCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "detach <recording-id>",
		Short: "Detach a recording from its incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := e.open()
			if err != nil {
				return err
			}
			if err := services.Incidents.DetachRecording(cmd.Context(), args[0]); err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Detached recording %s\n", args[0])
			return nil
		},
	}
}

func printIncidents(out io.Writer, incidents []domain.Incident) {
	if len(incidents) == 0 {
		dimColor.Fprintln(out, "No incidents")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tDATE\tLOCATION\tAGENCY")
	for _, incident := range incidents {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			incident.ID,
			incident.Title,
			incident.Date.Local().Format("2006-01-02 15:04"),
			orDash(incident.Location),
			orDash(incident.Agency),
		)
	}
	_ = w.Flush()
}

func printIncident(out io.Writer, incident domain.Incident, recs []domain.Recording) {
	headColor.Fprintln(out, incident.Title)
	fmt.Fprintf(out, "ID:        %s\n", incident.ID)
	fmt.Fprintf(out, "Date:      %s\n", incident.Date.Local().Format("Jan 2, 2006 at 3:04 PM"))
	fmt.Fprintf(out, "Location:  %s\n", orDash(incident.Location))
	fmt.Fprintf(out, "Agency:    %s\n", orDash(incident.Agency))
	fmt.Fprintf(out, "Officer:   %s\n", orDash(incident.OfficerInfo))
	dimColor.Fprintf(out, "Edited:    %s\n", incident.LastEditedAt.Local().Format("Jan 2, 2006 at 3:04 PM"))
	if strings.TrimSpace(incident.Notes) != "" {
		fmt.Fprintf(out, "\n%s\n", incident.Notes)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Attached Recordings: %d\n", len(recs))
	for _, rec := range recs {
		fmt.Fprintf(out, "  %s  %s  (%s)\n", rec.ID, rec.DisplayName(), report.FormatDuration(rec.Duration))
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
