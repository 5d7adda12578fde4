package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chatdocs",
	Short: "Retrieval-augmented chat over user-trained document namespaces",
	Long: `chatdocs ingests text, web pages and PDFs into per-tenant vector
namespaces and answers questions over them with a conversational
retrieval chain.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
