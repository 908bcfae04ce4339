package cli

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/appium-harness/pkg/cmdrunner"
	"github.com/devicelab-dev/appium-harness/pkg/envcheck"
	"github.com/devicelab-dev/appium-harness/pkg/server"
)

var doctorCommand = &cli.Command{
	Name:  "doctor",
	Usage: "Verify the local automation environment",
	Description: `Checks Node.js, Java, Appium plus its drivers and server, the Android
SDK toolchain, and (on macOS) the Xcode toolchain. All stages run even
when earlier ones fail, so the report lists everything at once.

Results are cached for an hour; use --no-cache to force a fresh run.`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "parallel",
			Usage: "Run the verification stages concurrently",
		},
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "Ignore and do not write the cached result",
		},
		&cli.StringFlag{
			Name:  "cache-file",
			Usage: "Cache file path",
			Value: envcheck.DefaultCacheFile,
		},
	},
	Action: runDoctor,
}

func runDoctor(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	runner := cmdrunner.New()
	srv := server.New(cfg.Server.Host, cfg.Server.Port, runner)
	checker := envcheck.NewChecker(runner, srv)

	cache := envcheck.NewCache()
	cache.Path = c.String("cache-file")

	var result *envcheck.Result
	switch {
	case c.Bool("no-cache") && c.Bool("parallel"):
		result = checker.CheckParallel()
	case c.Bool("no-cache"):
		result = checker.Check()
	case c.Bool("parallel"):
		result = checker.CheckParallelCached(cache)
	default:
		result = checker.CheckCached(cache)
	}

	result.Report(os.Stdout)
	if !result.Status {
		return cli.Exit("", 1)
	}
	return nil
}
