package analysis

import (
	"testing"

	"github.com/richinex/mentorspace/model"
)

func TestInspectLineRules(t *testing.T) {
	files := model.FileMap{
		"index.py": "def hello():\n    print(\"hi\")\n\napi_key = \"sk-123\"\n",
		"app.js":   "console.log('x');\nconst token = 'abc';\n",
		"notes.md": "print(this) is prose",
	}
	results := Inspect(files)

	tests := []struct {
		file  string
		kinds []string
		lines []int
	}{
		{"index.py", []string{KindPrint, KindSecret}, []int{2, 4}},
		{"app.js", []string{KindConsoleLog, KindSecret}, []int{1, 2}},
		{"notes.md", nil, nil},
	}
	for _, tt := range tests {
		got := results[tt.file].Warnings
		if len(got) != len(tt.kinds) {
			t.Errorf("%s: %d warnings, want %d: %+v", tt.file, len(got), len(tt.kinds), got)
			continue
		}
		for i, w := range got {
			if w.Kind != tt.kinds[i] || w.Line != tt.lines[i] {
				t.Errorf("%s[%d] = %s@%d, want %s@%d", tt.file, i, w.Kind, w.Line, tt.kinds[i], tt.lines[i])
			}
		}
	}

	if sev := results["index.py"].Warnings[1].Severity; sev != model.SeverityHigh {
		t.Errorf("secret severity = %q, want high", sev)
	}
}

func TestComplexityEstimate(t *testing.T) {
	simple := "def f():\n    return 1\n"
	if got := complexity(".py", simple); got != 1 {
		t.Errorf("simple complexity = %v, want 1", got)
	}

	branchy := "def f(x):\n    if x and x > 1:\n        return 1\n    elif x:\n        return 2\n    for i in x:\n        pass\n"
	if got := complexity(".py", branchy); got != 5 {
		t.Errorf("branchy complexity = %v, want 5", got)
	}

	if got := complexity(".md", "if and or"); got != 1 {
		t.Errorf("unknown extension complexity = %v, want 1", got)
	}
}

func TestIssuesSortedByPath(t *testing.T) {
	results := Inspect(model.FileMap{
		"b.py": "print(1)",
		"a.py": "print(2)",
	})
	issues := results.Issues()
	if len(issues) != 2 || issues[0].File != "a.py" || issues[1].File != "b.py" {
		t.Fatalf("issues = %+v", issues)
	}
	if issues[0].Line == nil || *issues[0].Line != 1 {
		t.Errorf("line = %v, want 1", issues[0].Line)
	}
}
