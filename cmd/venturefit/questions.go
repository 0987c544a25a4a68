package main

import (
	"fmt"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joelkehle/venturefit/internal/catalog"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "List the question catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cat, err := catalog.Load(viper.GetString("catalog-file"))
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("output-json")
		if asJSON {
			blob, err := json.MarshalIndent(cat.Questions(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(blob))
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NUM\tID\tDIMENSION\tTYPE\tTEXT")
		for _, q := range cat.Questions() {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", q.Number, q.ID, q.Dimension, q.Type, q.Text)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(questionsCmd)

	questionsCmd.Flags().Bool("output-json", false, "print the catalog as JSON")
}
