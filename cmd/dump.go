package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/warpdl/cookiestore/cmd/common"
	"github.com/warpdl/cookiestore/pkg/cookie"
	"github.com/warpdl/cookiestore/pkg/credman"
)

const maskedValue = "********"

var (
	dumpDomain string
	showValues bool

	dumpFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "domain, d",
			Usage:       "only load the group of this domain",
			Destination: &dumpDomain,
		},
		cli.BoolFlag{
			Name:        "show-values, s",
			Usage:       "print cookie values instead of masking them (default: false)",
			Destination: &showValues,
		},
	}
)

var stdout io.Writer = os.Stdout

func dump(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	s, err := openSession()
	if err != nil {
		return common.PrintRuntimeErr(ctx, "dump", "open", err)
	}
	defer s.close()

	var cookies []*cookie.Canonical
	if dumpDomain != "" {
		cookies, err = s.loadGroup(dumpDomain)
	} else {
		cookies, err = s.loadAll()
	}
	if err != nil {
		return common.PrintRuntimeErr(ctx, "dump", "load", err)
	}
	if len(cookies) == 0 {
		fmt.Fprintln(stdout, "cookiestore: no cookies found")
	} else {
		sortCookies(cookies)
		writeCookies(stdout, cookies, showValues)
	}
	if n := s.counter("cookiestore_decrypt_failures_total"); n > 0 {
		err := fmt.Errorf("%w: %.0f stored cookies skipped", credman.ErrDecrypt, n)
		return common.PrintRuntimeErr(ctx, "dump", "decrypt", err)
	}
	return nil
}

func sortCookies(cookies []*cookie.Canonical) {
	sort.Slice(cookies, func(i, j int) bool {
		a, b := cookies[i], cookies[j]
		if a.Domain != b.Domain {
			return a.Domain < b.Domain
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Name < b.Name
	})
}

func writeCookies(w io.Writer, cookies []*cookie.Canonical, values bool) {
	for _, c := range cookies {
		value := maskedValue
		if values {
			value = c.Value
		}
		fmt.Fprintf(w, "%s\t%s\t%s=%s\texpires=%s\t%s\n",
			c.Domain, c.Path, c.Name, value, expiryString(c), flagString(c))
	}
	fmt.Fprintf(w, "\n%d cookies\n", len(cookies))
}

func expiryString(c *cookie.Canonical) string {
	if !c.Persistent || c.Expiry.IsZero() {
		return "session"
	}
	return c.Expiry.UTC().Format(time.RFC3339)
}

func flagString(c *cookie.Canonical) string {
	var flags []string
	if c.Secure {
		flags = append(flags, "secure")
	}
	if c.HttpOnly {
		flags = append(flags, "httponly")
	}
	flags = append(flags, "samesite="+c.SameSite.String(), "priority="+c.Priority.String())
	return strings.Join(flags, ",")
}
