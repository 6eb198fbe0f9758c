package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/warpdl/cookiestore/cmd"
	"github.com/warpdl/cookiestore/cmd/common"
)

var (
	version   string
	commit    string
	date      string
	buildType string = "unclassified"
)

func main() {
	err := cmd.Execute(os.Args, cmd.BuildArgs{
		Version:   version,
		Commit:    commit,
		Date:      date,
		BuildType: buildType,
	})
	if err != nil {
		var re *common.RuntimeError
		if !errors.As(err, &re) {
			fmt.Fprintf(os.Stderr, "cookiestore: %s\n", err.Error())
		}
		os.Exit(common.ExitCode(err))
	}
}
