package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"

	"github.com/warpdl/cookiestore/cmd/common"
	envs "github.com/warpdl/cookiestore/common"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

var (
	dbPath       string
	debug        bool
	logFile      string
	plaintext    bool
	purgeSession bool

	globalFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "db",
			Usage:       "path of the cookie database (default: <config dir>/cookiestore/Cookies)",
			EnvVar:      envs.DBPathEnv,
			Destination: &dbPath,
		},
		cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging",
			EnvVar:      envs.DebugEnv,
			Destination: &debug,
		},
		cli.StringFlag{
			Name:        "log-file",
			Usage:       "also append log messages to this file",
			Destination: &logFile,
		},
		cli.BoolFlag{
			Name:        "plaintext",
			Usage:       "read and write cookie values without encryption",
			Destination: &plaintext,
		},
		cli.BoolFlag{
			Name:        "purge-session",
			Usage:       "delete session cookies when the database is opened",
			Destination: &purgeSession,
		},
	}
)

func Execute(args []string, bArgs BuildArgs) error {
	app := cli.App{
		Name:                  "cookiestore",
		HelpName:              "cookiestore",
		Usage:                 "Inspect and maintain a persistent cookie database.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "cookiestore [global options] <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageError,
		Flags:                 globalFlags,
		Commands: []cli.Command{
			{
				Name:                   "dump",
				Aliases:                []string{"d"},
				Usage:                  "print stored cookies",
				Action:                 dump,
				OnUsageError:           common.UsageError,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            DumpDescription,
				UseShortOptionHandling: true,
				Flags:                  dumpFlags,
			},
			{
				Name:               "import",
				Aliases:            []string{"i"},
				Usage:              "import cookies from browser stores or cookies.txt files",
				ArgsUsage:          "<file> [file...]",
				Action:             importCookies,
				OnUsageError:       common.UsageError,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        ImportDescription,
				Flags:              importFlags,
			},
			{
				Name:                   "delete",
				Aliases:                []string{"rm"},
				Usage:                  "delete cookies by origin",
				Action:                 deleteCookies,
				OnUsageError:           common.UsageError,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            DeleteDescription,
				UseShortOptionHandling: true,
				Flags:                  deleteFlags,
			},
			{
				Name:               "stats",
				Aliases:            []string{"s"},
				Usage:              "show database statistics",
				Action:             stats,
				OnUsageError:       common.UsageError,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        StatsDescription,
				Flags:              statsFlags,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of cookiestore",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.Version,
			},
		},
		HideHelp:    true,
		HideVersion: true,
	}
	common.VersionInfo = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
