package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/richinex/mentorspace/analysis"
	"github.com/richinex/mentorspace/model"
)

// Analyze scores the files under dir and prints the report to out.
func Analyze(ctx context.Context, dir, intent string, asJSON bool, opts Options, out, logOut io.Writer) error {
	in, err := analysis.ParseIntent(intent)
	if err != nil {
		return err
	}
	files, err := LoadDir(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no text files found under %s", dir)
	}

	stack, err := BuildStack(opts, logOut)
	if err != nil {
		return err
	}
	defer stack.Close()

	var report model.AnalysisReport
	if stack.Settings.Remote.BaseURL != "" {
		report = stack.NewSession(files).Analyze(ctx)
	} else {
		fm := make(model.FileMap, len(files))
		for _, f := range files {
			fm[f.Path] = f.Content
		}
		report, err = stack.Analyzer.AnalyzeIntent(ctx, fm, in)
		if err != nil {
			return err
		}
	}
	if report.Error != "" {
		return fmt.Errorf("%s", report.Error)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(out, report, len(files))
	return nil
}

func printReport(out io.Writer, r model.AnalysisReport, files int) {
	fmt.Fprintf(out, "Score: %d/100 (%d files)\n\n", r.Score, files)
	if r.Insights != "" {
		fmt.Fprintf(out, "%s\n\n", r.Insights)
	}
	if len(r.Issues) == 0 {
		fmt.Fprintln(out, "No issues found.")
		return
	}
	fmt.Fprintf(out, "Issues (%d):\n", len(r.Issues))
	for _, is := range r.Issues {
		loc := is.File
		if is.Line != nil {
			loc = fmt.Sprintf("%s:%d", is.File, *is.Line)
		}
		fmt.Fprintf(out, "  [%s] %s %s\n", severityOrMedium(is.Severity), loc, is.Message)
	}
}

func severityOrMedium(s string) string {
	if s == "" {
		return model.SeverityMedium
	}
	return s
}
