package cmd

import (
	"errors"
	"fmt"

	"github.com/urfave/cli"

	"github.com/warpdl/cookiestore/cmd/common"
	"github.com/warpdl/cookiestore/pkg/cookiestore"
)

var (
	deleteSecure bool
	forceDelete  bool

	deleteFlags = []cli.Flag{
		cli.StringSliceFlag{
			Name:  "domain, d",
			Usage: "host key to delete (repeatable, a leading dot selects the domain cookie)",
		},
		cli.BoolFlag{
			Name:        "secure, s",
			Usage:       "delete cookies set with the secure flag instead of insecure ones",
			Destination: &deleteSecure,
		},
		cli.BoolFlag{
			Name:        "force, f",
			Usage:       "do not ask for confirmation",
			Destination: &forceDelete,
		},
	}
)

func origins(domains []string, secure bool) []cookiestore.Origin {
	out := make([]cookiestore.Origin, 0, len(domains))
	for _, d := range domains {
		out = append(out, cookiestore.Origin{Domain: d, Secure: secure})
	}
	return out
}

func deleteCookies(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	domains := ctx.StringSlice("domain")
	if len(domains) == 0 {
		return common.UsageError(ctx, errors.New("no domain provided"), false)
	}
	if !confirm(command("delete"), forceDelete) {
		return nil
	}

	s, err := openSession()
	if err != nil {
		return common.PrintRuntimeErr(ctx, "delete", "open", err)
	}
	s.backend.DeleteAllInList(origins(domains, deleteSecure))
	s.close()
	fmt.Fprintf(stdout, "deleted cookies of %d origins\n", len(domains))
	return nil
}
