package cmd

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"github.com/warpdl/cookiestore/cmd/common"
	"github.com/warpdl/cookiestore/pkg/cookie"
	"github.com/warpdl/cookiestore/pkg/cookiestore"
)

var (
	topGroups int

	statsFlags = []cli.Flag{
		cli.IntFlag{
			Name:        "top, n",
			Usage:       "number of domain groups to list",
			Value:       10,
			Destination: &topGroups,
		},
	}
)

var fs afero.Fs = afero.NewOsFs()

type groupCount struct {
	key   string
	count int
}

type summary struct {
	total      int
	persistent int
	secure     int
	oldest     time.Time
	groups     []groupCount
}

func summarize(cookies []*cookie.Canonical) summary {
	var s summary
	counts := make(map[string]int)
	for _, c := range cookies {
		s.total++
		if c.Persistent {
			s.persistent++
		}
		if c.Secure {
			s.secure++
		}
		if s.oldest.IsZero() || c.Creation.Before(s.oldest) {
			s.oldest = c.Creation
		}
		counts[cookiestore.GroupKey(c.Domain)]++
	}
	for k, n := range counts {
		s.groups = append(s.groups, groupCount{key: k, count: n})
	}
	sort.Slice(s.groups, func(i, j int) bool {
		if s.groups[i].count != s.groups[j].count {
			return s.groups[i].count > s.groups[j].count
		}
		return s.groups[i].key < s.groups[j].key
	})
	return s
}

func stats(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	path := databasePath()
	info, err := fs.Stat(path)
	if err != nil {
		fmt.Fprintf(stdout, "cookiestore: no database at %s\n", path)
		return nil
	}
	version, compatible, err := cookiestore.SchemaVersion(path)
	if err != nil {
		return common.PrintRuntimeErr(ctx, "stats", "schema_version", err)
	}

	s, err := openSession()
	if err != nil {
		return common.PrintRuntimeErr(ctx, "stats", "open", err)
	}
	defer s.close()
	cookies, err := s.loadAll()
	if err != nil {
		return common.PrintRuntimeErr(ctx, "stats", "load", err)
	}
	writeStats(stdout, path, info.Size(), info.ModTime(), version, compatible, summarize(cookies), topGroups)
	return nil
}

func writeStats(w io.Writer, path string, size int64, modified time.Time, version, compatible int, s summary, top int) {
	fmt.Fprintf(w, "Database\t: %s\n", path)
	fmt.Fprintf(w, "Size\t\t: %s\n", humanize.Bytes(uint64(size)))
	fmt.Fprintf(w, "Modified\t: %s\n", humanize.Time(modified))
	fmt.Fprintf(w, "Schema\t\t: v%d (compatible with v%d)\n", version, compatible)
	fmt.Fprintf(w, "Cookies\t\t: %s (%s persistent, %s secure)\n",
		humanize.Comma(int64(s.total)), humanize.Comma(int64(s.persistent)), humanize.Comma(int64(s.secure)))
	if s.total == 0 {
		return
	}
	fmt.Fprintf(w, "Oldest\t\t: %s\n", humanize.Time(s.oldest))
	fmt.Fprintf(w, "\n%s|%s\n", common.Center("Domain group", 32), common.Center("Cookies", 9))
	for i, g := range s.groups {
		if top > 0 && i >= top {
			fmt.Fprintf(w, "... %d more groups\n", len(s.groups)-top)
			break
		}
		fmt.Fprintf(w, "%-32s|%9d\n", g.key, g.count)
	}
}
