package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/link-validator/internal/domain"
)

var errNoURLs = errors.New("no urls given: pass them as arguments or with --file")

func newValidateCommand() *cobra.Command {
	var (
		file    string
		asJSON  bool
		onlyBad bool
	)

	cmd := &cobra.Command{
		Use:   "validate [url...]",
		Short: "Validate URLs and print a verdict for each",
		Example: `  link-validator validate https://example.com/a https://example.com/b
  link-validator validate --file urls.txt --json
  cat urls.txt | link-validator validate --file -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := args
			if file != "" {
				fromFile, err := readURLList(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				urls = append(urls, fromFile...)
			}
			if len(urls) == 0 {
				return errNoURLs
			}

			deps, err := newCommandDeps(cmd.Context(), depsOptions{cli: true})
			if err != nil {
				return err
			}
			defer deps.Close()

			result, err := deps.Validator.ValidateBatch(cmd.Context(), urls)
			if err != nil {
				return fmt.Errorf("validate batch: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			renderVerdicts(cmd.OutOrStdout(), result, onlyBad)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read URLs from file, one per line (- for stdin)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the batch result as JSON")
	cmd.Flags().BoolVar(&onlyBad, "invalid", false, "list only invalid URLs")

	return cmd
}

// readURLList reads one URL per line, skipping blank lines and # comments.
func readURLList(stdin io.Reader, path string) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open url list: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return urls, nil
}

// renderVerdicts prints one row per verdict followed by the batch counts.
func renderVerdicts(w io.Writer, result *domain.BatchResult, onlyInvalid bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"URL", "Status", "Reason", "Score", "Valid"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "URL", WidthMax: 80},
		{Name: "Score", Align: text.AlignRight},
	})

	for _, v := range result.ScoredURLs {
		if onlyInvalid && v.Valid {
			continue
		}
		valid := text.FgRed.Sprint("no")
		if v.Valid {
			valid = text.FgGreen.Sprint("yes")
		}
		t.AppendRow(table.Row{v.URL, v.Status, v.ReasonCode, fmt.Sprintf("%.2f", v.Score), valid})
	}

	c := result.Counts
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d checked, %d valid, %d invalid", c.TotalChecked, len(result.ValidURLs), len(result.InvalidURLs)),
		fmt.Sprintf("trusted %d", c.AutoApproved),
		fmt.Sprintf("rendered %d / head %d", c.BrowserChecked, c.FallbackChecked),
		fmt.Sprintf("cache %d", c.CacheHits),
		fmt.Sprintf("paywall %d", c.PaywallBlocked),
	})

	t.Render()
}
