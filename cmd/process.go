package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

func newProcessCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "process <document_id>",
		Short: "Runs the pipeline for one discovered document",
		Long: `Runs download, OCR and article extraction for a single document,
e.g. "lawharvest process loi-2025-8". Steps that already completed are
skipped; --force rebuilds the consolidated articles from the stored
artifacts.`,
		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			documentID := args[0]
			if _, err := lawdoc.ParseIdentifier(documentID); err != nil {
				return err
			}

			res := a.Pipeline.Process(cmd.Context(), documentID, force)
			if res.Skipped {
				cmd.Printf("%s already consolidated (%d articles)\n", documentID, res.ArticleCount)
				return nil
			}
			if !res.Success {
				return fmt.Errorf("process %s: %s (stage %s)", documentID, res.Message, res.Stage)
			}
			cmd.Printf("%s consolidated: %d articles, confidence %.2f\n",
				documentID, res.ArticleCount, res.Confidence)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "rebuild consolidated articles")
	return cmd
}
