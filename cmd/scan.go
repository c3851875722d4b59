package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sgg-bj/lawharvest/internal/app"
	"github.com/sgg-bj/lawharvest/internal/enumerate"
	"github.com/sgg-bj/lawharvest/internal/lawdoc"
	"github.com/sgg-bj/lawharvest/internal/scan"
)

func newScanCmd() *cobra.Command {
	var (
		docType  string
		strategy string
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Runs one discovery scan",
		Long: `Probes candidate document numbers and records the outcome: found
documents are inserted into the found store, confirmed-absent numbers are
merged into not-found ranges. The "current" strategy re-probes the whole
current year; "previous" resumes the backward walk over prior years from
the persisted cursor.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			var kind enumerate.Kind
			switch strategy {
			case "current":
				kind = enumerate.KindFullRescan
			case "previous":
				kind = enumerate.KindCursorResumable
			default:
				return fmt.Errorf("unknown strategy %q: want current or previous", strategy)
			}

			types, err := resolveTypes(a, docType)
			if err != nil {
				return err
			}
			for _, t := range types {
				if err := runScanFor(cmd.Context(), a, kind, t); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&docType, "type", "", "document type: loi, decret or all (default: configured law.document_types)")
	cmd.Flags().StringVar(&strategy, "strategy", "current", "scan strategy: current or previous")
	return cmd
}

// resolveTypes maps the --type flag to document types. An empty flag
// defers to law.document_types, so operators control the probe volume of
// routine scans in one place.
func resolveTypes(a *app.App, raw string) ([]lawdoc.DocumentType, error) {
	switch raw {
	case "":
		return a.ScanTypes(), nil
	case "all":
		return []lawdoc.DocumentType{lawdoc.TypeLoi, lawdoc.TypeDecret}, nil
	default:
		t := lawdoc.DocumentType(raw)
		if !lawdoc.ValidType(t) {
			return nil, fmt.Errorf("unknown document type %q", raw)
		}
		return []lawdoc.DocumentType{t}, nil
	}
}

func runScanFor(ctx context.Context, a *app.App, kind enumerate.Kind, t lawdoc.DocumentType) error {
	report, err := a.Runner.Run(ctx, enumerate.Spec{Kind: kind}, a.EnumerateOptions(t))
	if err != nil {
		return fmt.Errorf("scan %s: %w", t, err)
	}
	a.Server.RecordRun(report)
	notifyReport(ctx, a, t, report)
	return nil
}

func notifyReport(ctx context.Context, a *app.App, t lawdoc.DocumentType, report scan.Report) {
	if a.Notifier == nil {
		return
	}
	digest := fmt.Sprintf(
		"%s scan (%s): %d candidates, %d found (%d new), %d absent, %d unknown in %s",
		t, report.Strategy, report.Candidates, report.Found, report.NewlyFound,
		report.Absent, report.Unknown, report.Duration.Round(100*time.Millisecond),
	)
	if err := a.Notifier.Notify(ctx, digest); err != nil {
		a.Logger.Warn("notify failed", zap.Error(err))
	}
}
