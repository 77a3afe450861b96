package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/klanavo/klanavo/internal/extract"
)

var (
	extractFile   string
	extractOutput string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run the detail extractor over a saved listing page",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(extractFile)
		if err != nil {
			return eris.Wrapf(err, "extract: read %s", extractFile)
		}
		return writeOutput(cmd.OutOrStdout(), extractOutput, extract.Extract(string(raw)))
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractFile, "file", "", "path to a saved listing page")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "json", "output format: json or yaml")
	_ = extractCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(extractCmd)
}
