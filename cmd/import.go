package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"golang.org/x/sync/errgroup"

	"github.com/warpdl/cookiestore/cmd/common"
	"github.com/warpdl/cookiestore/internal/cookies"
	"github.com/warpdl/cookiestore/pkg/cookie"
)

var (
	importDomain string
	noProgress   bool

	importFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "domain, d",
			Usage:       "only import cookies of this domain and its subdomains",
			Destination: &importDomain,
		},
		cli.BoolFlag{
			Name:        "no-progress",
			Usage:       "do not render a progress bar",
			Destination: &noProgress,
		},
	}
)

// progressOutput receives the progress bar.
var progressOutput io.Writer = os.Stderr

type importResult struct {
	cookies []*cookie.Canonical
	source  *cookies.Source
}

// parseSources parses every path concurrently. Results keep the order of
// paths so later files win over earlier ones.
func parseSources(im *cookies.Importer, paths []string) ([]importResult, error) {
	results := make([]importResult, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			parsed, src, err := im.Import(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = importResult{cookies: parsed, source: src}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func importCookies(ctx *cli.Context) error {
	paths := []string(ctx.Args())
	if len(paths) == 0 {
		return common.UsageError(ctx, errors.New("no cookie files provided"), false)
	} else if paths[0] == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}

	s, err := openSession()
	if err != nil {
		return common.PrintRuntimeErr(ctx, "import", "open", err)
	}
	defer s.close()

	im := &cookies.Importer{Domain: importDomain, Log: s.log}
	results, err := parseSources(im, paths)
	if err != nil {
		return common.PrintRuntimeErr(ctx, "import", "parse", err)
	}
	var total int64
	for _, r := range results {
		total += int64(len(r.cookies))
	}

	out := progressOutput
	if noProgress {
		out = io.Discard
	}
	p := mpb.New(mpb.WithOutput(out), mpb.WithWidth(60))
	bar := common.InitImportBar(p, "Importing", total)
	for _, r := range results {
		for _, c := range r.cookies {
			// Delete first so the insert replaces any stored cookie with
			// the same identity.
			s.backend.Delete(c)
			s.backend.Add(c)
			bar.Increment()
		}
	}
	s.flush()
	bar.SetTotal(total, true)
	p.Wait()

	for _, r := range results {
		fmt.Fprintf(stdout, "%s (%s): %d cookies\n", r.source.Path, r.source.Browser, len(r.cookies))
	}
	failed := s.counter("cookiestore_commit_statement_failures_total")
	fmt.Fprintf(stdout, "imported %d cookies from %d sources", total, len(results))
	if failed > 0 {
		fmt.Fprintf(stdout, " (%.0f statements failed)", failed)
	}
	fmt.Fprintln(stdout)
	return nil
}
