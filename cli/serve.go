package cli

import (
	"context"
	"io"

	"github.com/richinex/mentorspace/server"
	"github.com/richinex/mentorspace/workspace"
)

// ServeOptions holds serve-specific flags. Empty values keep the settings.
type ServeOptions struct {
	Addr string
	// Dir seeds the workspace; empty seeds the default project.
	Dir string
}

// Serve runs the HTTP server until ctx is done. The server exposes the
// session routes and the collaborator backend routes.
func Serve(ctx context.Context, so ServeOptions, opts Options, logOut io.Writer) error {
	stack, err := BuildStack(opts, logOut)
	if err != nil {
		return err
	}
	defer stack.Close()

	files := workspace.DefaultFiles()
	if so.Dir != "" {
		if files, err = LoadDir(so.Dir); err != nil {
			return err
		}
	}

	addr := stack.Settings.Server.Addr
	if so.Addr != "" {
		addr = so.Addr
	}

	srv := server.New(stack.NewSession(files),
		server.WithLogger(stack.Logger),
		server.WithBackends(stack.Analyzer, stack.Runner, stack.Chat),
	)
	return srv.ListenAndServe(ctx, addr)
}
