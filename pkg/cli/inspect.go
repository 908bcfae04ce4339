package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/appium-harness/pkg/core"
	"github.com/devicelab-dev/appium-harness/pkg/inspector"
	"github.com/devicelab-dev/appium-harness/pkg/session"
	"github.com/devicelab-dev/appium-harness/pkg/testgen"
)

var inspectCommand = &cli.Command{
	Name:  "inspect",
	Usage: "Snapshot the current app screen, optionally exploring neighbors",
	Description: `Opens a session on the configured device, analyzes the foreground
screen, and writes the discovered features as YAML. With --explore the
clickable elements on the screen are followed one level deep.`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "explore",
			Usage: "Follow clickable elements one level deep",
		},
		&cli.IntFlag{
			Name:  "depth",
			Usage: "Maximum clickable candidates to follow",
			Value: inspector.DefaultMaxDepth,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Artifact directory",
			Value:   "artifacts",
		},
	},
	Action: runInspect,
}

func runInspect(c *cli.Context) error {
	features, _, err := inspectPages(c)
	if err != nil {
		return err
	}

	path, err := testgen.WriteFeatures(c.String("output"), features)
	if err != nil {
		return err
	}
	fmt.Printf("Inspected %d screen(s), features written to %s\n", len(features), path)
	return nil
}

// inspectPages runs the shared session + inspection pipeline behind the
// inspect and generate commands. The returned manager teardown has
// already happened; only the inspection results come back.
func inspectPages(c *cli.Context) (core.FeatureMap, core.PageFeature, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, core.PageFeature{}, err
	}

	mgr := session.NewManager(cfg)
	if err := mgr.StartServer(); err != nil {
		return nil, core.PageFeature{}, err
	}
	defer mgr.Stop()

	sess, err := mgr.CreateSession(c.String("platform"), c.String("device"))
	if err != nil {
		return nil, core.PageFeature{}, err
	}

	insp := inspector.New(sess)
	root, err := insp.AnalyzeCurrentPage()
	if err != nil {
		return nil, core.PageFeature{}, err
	}

	features := core.FeatureMap{root.Activity: root}
	if c.Bool("explore") {
		features, err = insp.ExplorePages(c.Int("depth"))
		if err != nil {
			return nil, core.PageFeature{}, err
		}
	}
	return features, root, nil
}
