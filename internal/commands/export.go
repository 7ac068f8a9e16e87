package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskflow/internal/exitcode"
	"taskflow/internal/export"
)

func init() {
	Register(&ExportCmd{})
}

// ExportCmd implements the export command.
type ExportCmd struct {
	base
	format string
	outDir string
}

func (c *ExportCmd) Name() string     { return "export" }
func (c *ExportCmd) Synopsis() string { return "Export tasks to CSV, XLSX or PDF" }
func (c *ExportCmd) Usage() string {
	return "taskflow export [--format csv|xlsx|pdf|all] [--out <dir>]"
}
func (c *ExportCmd) NeedsAuth() bool { return true }

func (c *ExportCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.format, "format", "all", "")
	fs.StringVar(&c.format, "f", "all", "")
	fs.StringVar(&c.outDir, "out", ".", "")
	fs.StringVar(&c.outDir, "o", ".", "")
}

func (c *ExportCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	formats, err := export.ParseFormats(c.format)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	d, code := loadDashboard(ctx, env, errOut)
	if d == nil {
		return code
	}
	defer d.Close()

	paths, err := export.New(c.outDir, env.Log).Export(ctx, formats, d)
	if err != nil {
		fmt.Fprintf(errOut, "error: export failed: %v\n", err)
		return exitcode.ExportError
	}
	if !env.Config.Quiet {
		for _, p := range paths {
			fmt.Fprintln(out, p)
		}
	}
	return exitcode.Success
}
