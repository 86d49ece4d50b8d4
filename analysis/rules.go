package analysis

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/richinex/mentorspace/model"
)

// Warning kinds.
const (
	KindPrint      = "print"
	KindConsoleLog = "console_log"
	KindSecret     = "hardcoded_secret"
)

var (
	printCall    = regexp.MustCompile(`\bprint\s*\(`)
	consoleLog   = regexp.MustCompile(`console\.log\s*\(`)
	secretAssign = regexp.MustCompile(`(?i)(api_key|password|secret|token)\s*=\s*['"][^'"]+['"]`)

	branchToken = map[string]*regexp.Regexp{
		".py": regexp.MustCompile(`\b(if|elif|for|while|except|and|or)\b`),
		".js": regexp.MustCompile(`\b(if|for|while|case|catch)\b|&&|\|\||\?\?`),
		".ts": regexp.MustCompile(`\b(if|for|while|case|catch)\b|&&|\|\||\?\?`),
		".go": regexp.MustCompile(`\b(if|for|case|select)\b|&&|\|\|`),
	}
	functionToken = map[string]*regexp.Regexp{
		".py": regexp.MustCompile(`(?m)^\s*(async\s+)?def\s`),
		".js": regexp.MustCompile(`\bfunction\b|=>`),
		".ts": regexp.MustCompile(`\bfunction\b|=>`),
		".go": regexp.MustCompile(`(?m)^func\s`),
	}
)

// Warning is one static finding.
type Warning struct {
	Line     int    `json:"line"`
	Severity string `json:"severity"`
	Message  string `json:"msg"`
	Kind     string `json:"kind"`
}

// FileMetrics is the static result for one file.
type FileMetrics struct {
	Complexity float64   `json:"complexity"`
	Warnings   []Warning `json:"warnings"`
}

// StaticResults maps a path to its metrics.
type StaticResults map[string]FileMetrics

// AverageComplexity averages complexity across files (0 for no files).
func (r StaticResults) AverageComplexity() float64 {
	if len(r) == 0 {
		return 0
	}
	total := 0.0
	for _, m := range r {
		total += m.Complexity
	}
	return total / float64(len(r))
}

// WarningCount sums warnings across files.
func (r StaticResults) WarningCount() int {
	n := 0
	for _, m := range r {
		n += len(m.Warnings)
	}
	return n
}

// Issues flattens warnings into report issues in path order.
func (r StaticResults) Issues() []model.Issue {
	paths := make([]string, 0, len(r))
	for p := range r {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	var issues []model.Issue
	for _, p := range paths {
		for _, w := range r[p].Warnings {
			issues = append(issues, model.Issue{
				File:     p,
				Line:     intPtr(w.Line),
				Severity: w.Severity,
				Message:  w.Message,
				Kind:     w.Kind,
			})
		}
	}
	return issues
}

// onlyKind keeps warnings of the given kind.
func (r StaticResults) onlyKind(kind string) StaticResults {
	out := make(StaticResults, len(r))
	for p, m := range r {
		var kept []Warning
		for _, w := range m.Warnings {
			if w.Kind == kind {
				kept = append(kept, w)
			}
		}
		out[p] = FileMetrics{Complexity: m.Complexity, Warnings: kept}
	}
	return out
}

// Inspect runs the line rules and the complexity estimate on every file.
func Inspect(files model.FileMap) StaticResults {
	results := make(StaticResults, len(files))
	for p, content := range files {
		results[p] = inspectFile(p, content)
	}
	return results
}

func inspectFile(name, content string) FileMetrics {
	ext := strings.ToLower(path.Ext(name))
	m := FileMetrics{Complexity: complexity(ext, content)}

	for i, line := range strings.Split(content, "\n") {
		n := i + 1
		if ext == ".py" && printCall.MatchString(line) {
			m.Warnings = append(m.Warnings, Warning{
				Line: n, Severity: model.SeverityLow, Kind: KindPrint,
				Message: "Consider using the logging module instead of print().",
			})
		}
		if consoleLog.MatchString(line) {
			m.Warnings = append(m.Warnings, Warning{
				Line: n, Severity: model.SeverityLow, Kind: KindConsoleLog,
				Message: "Consider removing console.log in production.",
			})
		}
		if secretAssign.MatchString(line) {
			m.Warnings = append(m.Warnings, Warning{
				Line: n, Severity: model.SeverityHigh, Kind: KindSecret,
				Message: "Potential hardcoded secret detected!",
			})
		}
	}
	return m
}

// complexity estimates average cyclomatic complexity per function as one
// plus the decision points divided by the function count.
func complexity(ext, content string) float64 {
	branches, ok := branchToken[ext]
	if !ok {
		return 1
	}
	decisions := len(branches.FindAllStringIndex(content, -1))
	functions := len(functionToken[ext].FindAllStringIndex(content, -1))
	if functions == 0 {
		functions = 1
	}
	return 1 + float64(decisions)/float64(functions)
}

func intPtr(n int) *int { return &n }
