package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"rightskeeper/internal/content"
	"rightskeeper/internal/domain"
)

func newAgenciesCommand(e *env) *cobra.Command {
	var category, state string
	cmd := &cobra.Command{
		Use:   "agencies",
		Short: "Show know-your-rights content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := e.open()
			if err != nil {
				return err
			}
			lib := services.Content

			var agencies []content.Agency
			switch {
			case state != "":
				agency, ok := lib.ByState(state)
				if !ok {
					return fmt.Errorf("%w: no traffic content for state %q (available: %s)",
						domain.ErrNotFound, state, strings.Join(lib.States(), ", "))
				}
				agencies = []content.Agency{agency}
			case category != "":
				agencies = lib.ByCategory(content.Category(strings.ToLower(category)))
			default:
				agencies = lib.All()
			}

			if e.jsonOut {
				return e.writeJSON(cmd.OutOrStdout(), agencies)
			}
			detailed := state != ""
			for _, agency := range agencies {
				printAgency(cmd.OutOrStdout(), agency, detailed)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "airport or traffic")
	cmd.Flags().StringVar(&state, "state", "", "two-letter state code for traffic stop rights")
	return cmd
}

func printAgency(out io.Writer, agency content.Agency, detailed bool) {
	name := agency.Name
	if agency.ShortName != "" {
		name = fmt.Sprintf("%s (%s)", agency.Name, agency.ShortName)
	}
	headColor.Fprintln(out, name)
	if agency.Description != "" {
		dimColor.Fprintln(out, agency.Description)
	}

	for _, card := range agency.Rights {
		marker := "-"
		if card.Priority == content.PriorityCritical {
			marker = warnColor.Sprint("!")
		}
		fmt.Fprintf(out, "  %s %s\n", marker, card.Title)
		if detailed && card.Summary != "" {
			fmt.Fprintf(out, "      %s\n", card.Summary)
		}
	}
	if detailed {
		for _, phrase := range agency.QuickPhrases {
			okColor.Fprintf(out, "  \"%s\"\n", phrase.Phrase)
		}
	}
	fmt.Fprintln(out)
}
