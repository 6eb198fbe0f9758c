// Package common holds what the cookiestore commands share: the import
// progress bar, error reporting with exit codes, and help output.
package common

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	envs "github.com/warpdl/cookiestore/common"
	"github.com/warpdl/cookiestore/internal/schema"
	"github.com/warpdl/cookiestore/pkg/cookiestore"
	"github.com/warpdl/cookiestore/pkg/credman"
)

// VersionInfo is printed by the version command. Execute fills it from
// the build arguments.
var VersionInfo string

// Process exit codes.
const (
	ExitFailure     = 1
	ExitUsage       = 2
	ExitUnavailable = 3
	ExitTooNew      = 4
	ExitCrypto      = 5
)

var (
	showAppHelp     = cli.ShowAppHelp
	showCommandHelp = cli.ShowCommandHelp
)

// RuntimeError is a command failure that has already been reported to the
// user. main exits with Code without printing it again.
type RuntimeError struct {
	Cmd    string
	Action string
	Code   int
	Err    error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s[%s]: %v", e.Cmd, e.Action, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// ExitCode is the process status for an error returned by Execute.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ExitFailure
}

// classify maps store errors to an exit code and a hint for the user.
// ErrTooNew is checked first since the store wraps it in ErrStoreUnavailable.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, schema.ErrTooNew):
		return ExitTooNew, "the database was written by a newer cookiestore and was left untouched"
	case errors.Is(err, credman.ErrInvalidKey),
		errors.Is(err, credman.ErrDecrypt),
		errors.Is(err, credman.ErrEncrypt):
		return ExitCrypto, fmt.Sprintf("check %s or the keyring entry, or pass --plaintext for an unencrypted database", envs.KeyEnv)
	case errors.Is(err, cookiestore.ErrStoreUnavailable),
		errors.Is(err, cookiestore.ErrClosed):
		return ExitUnavailable, "the cookie database could not be opened; check --db and its permissions"
	}
	return ExitFailure, ""
}

// PrintRuntimeErr reports a failed command action on the error output and
// returns the matching *RuntimeError for the action to return.
func PrintRuntimeErr(ctx *cli.Context, cmd, action string, err error) error {
	code, hint := classify(err)
	w := errOutput(ctx)
	fmt.Fprintf(w, "%s: %s[%s]: %v\n", appName(ctx), cmd, action, err)
	if hint != "" {
		fmt.Fprintf(w, "%s: %s\n", appName(ctx), hint)
	}
	return &RuntimeError{Cmd: cmd, Action: action, Code: code, Err: err}
}

// UsageError reports bad arguments followed by the help of the command in
// ctx, or the application help outside a command. It serves as the
// OnUsageError callback for the app and every command.
func UsageError(ctx *cli.Context, err error, _ bool) error {
	if errors.Is(err, flag.ErrHelp) {
		return Help(ctx)
	}
	if msg := err.Error(); strings.HasSuffix(msg, " -v") || strings.HasSuffix(msg, " -version") {
		return Version(ctx)
	}
	name := ctx.Command.Name
	fmt.Fprintf(errOutput(ctx), "%s: %v\n\n", appName(ctx), err)
	if name == "" {
		showAppHelp(ctx)
	} else if herr := showCommandHelp(ctx, name); herr != nil {
		fmt.Fprintln(errOutput(ctx), herr)
	}
	if name == "" {
		name = appName(ctx)
	}
	return &RuntimeError{Cmd: name, Action: "usage", Code: ExitUsage, Err: err}
}

// Help shows the application help, or the help of the command named by
// the first argument.
func Help(ctx *cli.Context) error {
	arg := ctx.Args().First()
	if arg == "" || arg == "help" {
		return showAppHelp(ctx)
	}
	if err := showCommandHelp(ctx, arg); err != nil {
		fmt.Fprintf(errOutput(ctx), "%s: %v\n", appName(ctx), err)
		return &RuntimeError{Cmd: "help", Action: "usage", Code: ExitUsage, Err: err}
	}
	return nil
}

// Version prints VersionInfo.
func Version(ctx *cli.Context) error {
	w := io.Writer(os.Stdout)
	if ctx != nil && ctx.App != nil && ctx.App.Writer != nil {
		w = ctx.App.Writer
	}
	fmt.Fprintln(w, VersionInfo)
	return nil
}

// InitImportBar creates a block-style bar counting queued cookies out of
// total. The bar shows a running count and the average rate.
func InitImportBar(p *mpb.Progress, name string, total int64) *mpb.Bar {
	barStyle := mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟")

	bar := p.New(total,
		barStyle,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
			decor.OnComplete(
				decor.CountersNoUnit("%d / %d", decor.WC{W: 4}), "Complete",
			),
		),
		mpb.AppendDecorators(
			decor.AverageSpeed(0, "% .0f/s"),
		),
	)
	bar.EnableTriggerComplete()
	return bar
}

// Center pads s with spaces to width, the odd space going right.
func Center(s string, width int) string {
	pad := width - len(s)
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad/2) + s + strings.Repeat(" ", pad-pad/2)
}

func appName(ctx *cli.Context) string {
	if ctx != nil && ctx.App != nil && ctx.App.HelpName != "" {
		return ctx.App.HelpName
	}
	return os.Args[0]
}

func errOutput(ctx *cli.Context) io.Writer {
	if ctx != nil && ctx.App != nil && ctx.App.ErrWriter != nil {
		return ctx.App.ErrWriter
	}
	return os.Stderr
}
