package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/joelkehle/venturefit/internal/assessment"
	"github.com/joelkehle/venturefit/internal/report"
	"github.com/joelkehle/venturefit/internal/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score RESPONSES.json",
	Short: "Score a response file without storing anything",
	Long: "Score a JSON file holding either an array of {questionId, value} objects or an\n" +
		"object with a \"responses\" array. Use - to read from stdin.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		venturesFile, _ := cmd.Flags().GetString("ventures")
		format, _ := cmd.Flags().GetString("format")
		return score(cmd.Context(), cmd.OutOrStdout(), args[0], name, venturesFile, format)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().String("name", "", "applicant name used in the narrative")
	scoreCmd.Flags().String("ventures", "", "YAML venture profiles to match against instead of the stored ones")
	scoreCmd.Flags().String("format", "json", "output format: json or md")
}

func readResponses(path string) ([]assessment.Response, error) {
	var (
		blob []byte
		err  error
	)
	if path == "-" {
		blob, err = io.ReadAll(os.Stdin)
	} else {
		blob, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read responses: %w", err)
	}
	blob = bytes.TrimSpace(blob)
	if len(blob) > 0 && blob[0] == '[' {
		var rs []assessment.Response
		if err := json.Unmarshal(blob, &rs); err != nil {
			return nil, fmt.Errorf("decode responses: %w", err)
		}
		return rs, nil
	}
	var wrapped struct {
		Responses []assessment.Response `json:"responses"`
	}
	if err := json.Unmarshal(blob, &wrapped); err != nil {
		return nil, fmt.Errorf("decode responses: %w", err)
	}
	return wrapped.Responses, nil
}

func score(ctx context.Context, out io.Writer, path, name, venturesFile, format string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	responses, err := readResponses(path)
	if err != nil {
		return err
	}
	var ventures []assessment.VentureProfile
	if venturesFile != "" {
		if ventures, err = store.LoadVentureFile(venturesFile); err != nil {
			return err
		}
	}

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	outcome, err := rt.svc.Preview(ctx, name, responses, ventures)
	if err != nil {
		return err
	}
	switch format {
	case "md", "markdown":
		_, err = io.WriteString(out, report.Markdown(report.Document{Result: outcome.Result, Matches: outcome.Matches}))
		return err
	case "json", "":
		pretty, err := json.MarshalIndent(outcome, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(pretty))
		return err
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
