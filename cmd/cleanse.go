package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/link-validator/internal/cleanser"
	"github.com/jonesrussell/north-cloud/link-validator/internal/domain"
)

func newCleanseCommand() *cobra.Command {
	var (
		file     string
		markdown bool
	)

	cmd := &cobra.Command{
		Use:   "cleanse",
		Short: "Strip links with invalid targets from content sections",
		Long: `Reads a JSON object of sections, each with a "content" markdown string,
and writes the same object with every link to an invalid target replaced by
its anchor text. With --markdown the input is a single markdown document.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			input, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			deps, err := newCommandDeps(cmd.Context(), depsOptions{cli: true})
			if err != nil {
				return err
			}
			defer deps.Close()

			out := cmd.OutOrStdout()

			if markdown {
				cleaned, report, cleanErr := deps.Cleanser.CleanText(cmd.Context(), string(input))
				if cleanErr != nil {
					return fmt.Errorf("cleanse: %w", cleanErr)
				}
				if _, writeErr := io.WriteString(out, cleaned); writeErr != nil {
					return fmt.Errorf("write output: %w", writeErr)
				}
				printRemoved(cmd, report)
				return nil
			}

			var sections cleanser.Sections
			if unmarshalErr := json.Unmarshal(input, &sections); unmarshalErr != nil {
				return fmt.Errorf("parse sections: %w", unmarshalErr)
			}

			cleaned, report, err := deps.Cleanser.CleanWithReport(cmd.Context(), sections)
			if err != nil {
				return fmt.Errorf("cleanse: %w", err)
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if encodeErr := enc.Encode(cleaned); encodeErr != nil {
				return fmt.Errorf("write output: %w", encodeErr)
			}
			printRemoved(cmd, report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "input file (- for stdin)")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "treat input as one markdown document")

	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

// printRemoved lists stripped links on stderr so stdout stays machine readable.
func printRemoved(cmd *cobra.Command, report *cleanser.Report) {
	if report == nil {
		return
	}
	cmd.PrintErrf("%d links checked, %d removed\n", report.Checked, len(report.Removed))
	for _, span := range report.Removed {
		cmd.PrintErrf("  %s: [%s](%s) %s\n", sectionName(span), span.AnchorText, span.TargetURL, reasonFor(report.Batch, span.TargetURL))
	}
}

func sectionName(span domain.LinkSpan) string {
	if span.Section == "" {
		return "-"
	}
	return span.Section
}

func reasonFor(batch *domain.BatchResult, url string) string {
	if batch == nil {
		return ""
	}
	for _, inv := range batch.InvalidURLs {
		if inv.URL == url {
			return inv.Reason
		}
	}
	return ""
}
