package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/mykhaliev/agent-scenarios/logger"
	"github.com/mykhaliev/agent-scenarios/model"
	"github.com/mykhaliev/agent-scenarios/version"
)

const TimestampLayout = "20060102_150405"

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SaveReport writes one scenario report as pretty-printed JSON into outputDir.
// The filename carries the scenario name and a timestamp so repeated runs
// never clobber each other. Returns the path written.
func SaveReport(report *model.ScenarioReport, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, logger.DirPermission); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := sonic.ConfigDefault.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.json",
		sanitizeFilename(report.ScenarioName),
		report.StartTime.Format(TimestampLayout))
	path := filepath.Join(outputDir, filename)

	if err := os.WriteFile(path, data, logger.FilePermission); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	logger.Logger.Info("Report saved",
		"scenario", report.ScenarioName,
		"path", path,
		"size", len(data))
	return path, nil
}

// SaveSummary writes the combined batch summary as compact JSON.
func SaveSummary(summary *model.BatchSummary, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, logger.DirPermission); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := sonic.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary: %w", err)
	}

	filename := fmt.Sprintf("summary_%s.json", summary.StartTime.Format(TimestampLayout))
	path := filepath.Join(outputDir, filename)

	if err := os.WriteFile(path, data, logger.FilePermission); err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}

	logger.Logger.Info("Summary saved", "path", path, "scenarios", summary.TotalScenarios)
	return path, nil
}

// SaveMarkdownSummary writes the Markdown rendition of the batch summary
// next to the JSON one.
func SaveMarkdownSummary(reports []*model.ScenarioReport, summary *model.BatchSummary, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, logger.DirPermission); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	md := GenerateMarkdownSummary(reports, summary)
	filename := fmt.Sprintf("summary_%s.md", summary.StartTime.Format(TimestampLayout))
	path := filepath.Join(outputDir, filename)

	if err := os.WriteFile(path, []byte(md), logger.FilePermission); err != nil {
		return "", fmt.Errorf("failed to write markdown summary: %w", err)
	}

	logger.Logger.Info("Markdown summary saved", "path", path)
	return path, nil
}

// PrintConsoleSummary prints the batch outcome to stdout with per-scenario
// detail for failures.
func PrintConsoleSummary(reports []*model.ScenarioReport, summary *model.BatchSummary) {
	fmt.Println("\n═══════════════════════════════════════════════════════════════")
	fmt.Println("                     SCENARIO RESULTS")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println()

	for _, report := range reports {
		if report == nil {
			continue
		}

		status := "\033[32m✓ PASS\033[0m"
		if !report.OverallSuccess {
			status = "\033[31m✗ FAIL\033[0m"
		}

		fmt.Printf("%s %s (%d/%d turns, %.2fs)\n",
			status,
			report.ScenarioName,
			report.SuccessfulTurns,
			report.TotalTurns,
			report.ExecutionTimeMs/1000.0)

		if report.Outcome == model.OutcomeExpectedError {
			fmt.Println("    └─ failed as expected")
		}

		for _, turn := range report.Turns {
			if turn.ValidationPassed {
				continue
			}
			fmt.Printf("    \033[31mTurn %d failed:\033[0m %q\n", turn.TurnNumber, turn.UserInput)
			for _, msg := range turn.ValidationErrors {
				fmt.Printf("      • %s\n", msg)
			}
		}
	}

	fmt.Println("\n═══════════════════════════════════════════════════════════════")
	fmt.Printf("Total: %d | \033[32mPassed: %d\033[0m | \033[31mFailed: %d\033[0m | Success rate: %.0f%%\n",
		summary.TotalScenarios,
		summary.Successful,
		summary.Failed,
		summary.SuccessRate*100)
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println()
}

// GenerateMarkdownSummary renders the batch summary as a Markdown document.
func GenerateMarkdownSummary(reports []*model.ScenarioReport, summary *model.BatchSummary) string {
	var md strings.Builder

	md.WriteString("# Scenario Results\n\n")
	md.WriteString(fmt.Sprintf("**Agent Scenarios Version:** %s\n", version.Version))
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", time.Now().Format(time.RFC3339)))

	md.WriteString("## Summary\n\n")
	md.WriteString(fmt.Sprintf("- **Total:** %d\n", summary.TotalScenarios))
	md.WriteString(fmt.Sprintf("- **Passed:** %d\n", summary.Successful))
	md.WriteString(fmt.Sprintf("- **Failed:** %d\n", summary.Failed))
	md.WriteString(fmt.Sprintf("- **Success rate:** %.0f%%\n\n", summary.SuccessRate*100))

	md.WriteString("| Scenario | Outcome | Turns | Tool calls | Duration |\n")
	md.WriteString("|----------|---------|-------|------------|----------|\n")
	for _, s := range summary.Scenarios {
		status := "✅ " + string(s.Outcome)
		if !s.OverallSuccess {
			status = "❌ " + string(s.Outcome)
		}
		md.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %.2fs |\n",
			s.ScenarioName, status, s.TotalTurns, s.ToolCalls, s.ExecutionTimeMs/1000.0))
	}
	md.WriteString("\n")

	failed := false
	for _, report := range reports {
		if report == nil || report.OverallSuccess {
			continue
		}
		if !failed {
			md.WriteString("## Failures\n\n")
			failed = true
		}
		md.WriteString(fmt.Sprintf("### %s\n\n", report.ScenarioName))
		for _, turn := range report.Turns {
			if turn.ValidationPassed {
				continue
			}
			md.WriteString(fmt.Sprintf("- **Turn %d** (`%s`):\n", turn.TurnNumber, turn.UserInput))
			for _, msg := range turn.ValidationErrors {
				md.WriteString(fmt.Sprintf("  - %s\n", msg))
			}
		}
		for _, e := range report.Errors {
			md.WriteString(fmt.Sprintf("- %s\n", e))
		}
		md.WriteString("\n")
	}

	return md.String()
}

// sanitizeFilename squashes anything not filesystem-safe into underscores.
func sanitizeFilename(name string) string {
	cleaned := unsafeFileChars.ReplaceAllString(name, "_")
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" {
		return "scenario"
	}
	return cleaned
}
