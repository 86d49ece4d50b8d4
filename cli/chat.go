package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/richinex/mentorspace/internal/diff"
	"github.com/richinex/mentorspace/session"
	"github.com/richinex/mentorspace/workspace"
)

const chatHelp = `Commands:
  /files           list open files (* marks the active one)
  /open PATH       make PATH the active file
  /show            print the active file
  /search TEXT     find TEXT in every file
  /actions         list proposed actions
  /diff ID         preview an action against the workspace
  /apply ID        apply an action
  /undo ID         undo an applied action
  /analyze         score the workspace
  /run [COMMAND]   run COMMAND, or the active file
  /save            write the workspace back to the directory
  /help            show this help
  exit             quit
Anything else is sent to the mentor.`

// Chat starts an interactive session over the files under dir, reading
// commands from in.
func Chat(ctx context.Context, dir string, opts Options, in io.Reader, out, logOut io.Writer) error {
	files := workspace.DefaultFiles()
	if dir != "" {
		loaded, err := LoadDir(dir)
		if err != nil {
			return err
		}
		files = loaded
	}

	stack, err := BuildStack(opts, logOut)
	if err != nil {
		return err
	}
	defer stack.Close()

	r := &repl{ctrl: stack.NewSession(files), dir: dir, out: out}
	fmt.Fprintf(out, "Workspace has %d file(s). Type /help for commands, 'exit' to quit.\n\n", len(files))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}
		if err := r.handle(ctx, input); err != nil {
			fmt.Fprintf(out, "Error: %v\n\n", err)
		}
	}
	return scanner.Err()
}

type repl struct {
	ctrl *session.Controller
	dir  string
	out  io.Writer
}

func (r *repl) handle(ctx context.Context, input string) error {
	if !strings.HasPrefix(input, "/") {
		return r.chat(ctx, input)
	}
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	ws := r.ctrl.Workspace()

	switch cmd {
	case "/help":
		fmt.Fprintln(r.out, chatHelp)
	case "/files":
		active, _ := ws.Active()
		for _, p := range ws.Paths() {
			mark := " "
			if p == active {
				mark = "*"
			}
			fmt.Fprintf(r.out, "%s %s\n", mark, p)
		}
	case "/open":
		return ws.SetActive(arg)
	case "/show":
		f, ok := ws.ActiveFile()
		if !ok {
			return fmt.Errorf("no active file")
		}
		fmt.Fprintf(r.out, "--- %s\n%s\n", f.Path, f.Content)
	case "/search":
		matches, err := ws.Search(arg, 50)
		if err != nil {
			return err
		}
		for _, m := range matches {
			fmt.Fprintf(r.out, "%s:%d:%d: %s\n", m.Path, m.Line, m.Column, m.Text)
		}
		if len(matches) == 0 {
			fmt.Fprintln(r.out, "No matches.")
		}
	case "/actions":
		for _, rec := range r.ctrl.Log().Records() {
			fmt.Fprintf(r.out, "%s  %-11s %-9s %s\n", rec.ID, rec.Action.Kind, rec.Status, rec.Action.Target)
		}
	case "/diff":
		p, err := r.ctrl.Log().Preview(arg)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "%s: +%d -%d\n", p.Target, p.Added, p.Removed)
		for _, h := range p.Hunks {
			for _, l := range h.Lines {
				fmt.Fprintf(r.out, "%s%s\n", linePrefix(l.Type), l.Text)
			}
		}
	case "/apply":
		rec, err := r.ctrl.Apply(arg)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Applied %s to %s.\n", rec.Action.Kind, rec.Action.Target)
	case "/undo":
		rec, err := r.ctrl.Undo(arg)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Reverted %s.\n", rec.Action.Target)
	case "/analyze":
		report := r.ctrl.Analyze(ctx)
		if report.Error != "" {
			return fmt.Errorf("%s", report.Error)
		}
		printReport(r.out, report, ws.Len())
	case "/run":
		result := r.ctrl.Run(ctx, arg)
		if result.Stdout != "" {
			fmt.Fprint(r.out, result.Stdout)
		}
		if result.Stderr != "" {
			fmt.Fprintf(r.out, "stderr: %s\n", strings.TrimRight(result.Stderr, "\n"))
		}
		if result.Error {
			fmt.Fprintln(r.out, "(failed)")
		}
	case "/save":
		if r.dir == "" {
			return fmt.Errorf("no directory to save to")
		}
		if err := SaveDir(r.dir, ws.Snapshot().Files); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Saved %d file(s) to %s.\n", ws.Len(), r.dir)
	default:
		return fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return nil
}

func (r *repl) chat(ctx context.Context, message string) error {
	entry, err := r.ctrl.Submit(ctx, message, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "\n%s\n", entry.Text)
	if entry.RecordID != "" {
		rec, err := r.ctrl.Log().Get(entry.RecordID)
		if err == nil {
			fmt.Fprintf(r.out, "Proposed %s on %s. /diff %s to preview, /apply %s to accept.\n",
				rec.Action.Kind, rec.Action.Target, rec.ID, rec.ID)
		}
	}
	fmt.Fprintln(r.out)
	return nil
}

func linePrefix(t string) string {
	switch t {
	case diff.LineAdded:
		return "+ "
	case diff.LineRemoved:
		return "- "
	default:
		return "  "
	}
}
