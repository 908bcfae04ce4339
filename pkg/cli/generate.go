package cli

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/appium-harness/pkg/core"
	"github.com/devicelab-dev/appium-harness/pkg/inspector"
	"github.com/devicelab-dev/appium-harness/pkg/logger"
	"github.com/devicelab-dev/appium-harness/pkg/testgen"
)

var generateCommand = &cli.Command{
	Name:  "generate",
	Usage: "Synthesize test cases and flows from the current app screen",
	Description: `Inspects the foreground screen, derives one test case per interactive
element, and renders flow files for the requested screen kinds. A screen
with nothing interactive still yields the smoke test set.`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "explore",
			Usage: "Follow clickable elements one level deep before generating",
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
		&cli.StringSliceFlag{
			Name:  "flow",
			Usage: "Screen kinds to render flows for (login, home, product_detail)",
		},
		&cli.StringFlag{
			Name:  "app-id",
			Usage: "Application ID used in rendered flows",
		},
	},
	Action: runGenerate,
}

func runGenerate(c *cli.Context) error {
	features, root, err := inspectPages(c)
	if err != nil {
		return err
	}

	output := c.String("output")

	// One case per interactive element across every discovered screen,
	// in stable screen order so repeated runs name cases identically.
	names := make([]string, 0, len(features))
	for name := range features {
		names = append(names, name)
	}
	sort.Strings(names)

	var interactive []core.ElementRecord
	for _, name := range names {
		interactive = append(interactive, inspector.DiscoverInteractive(features[name].Elements)...)
	}
	cases := testgen.Generate(interactive)
	casePath, err := testgen.WriteTestCases(output, cases)
	if err != nil {
		return err
	}

	if _, err := testgen.WriteFeatures(output, features); err != nil {
		return err
	}

	extra := map[string]interface{}{}
	if appID := c.String("app-id"); appID != "" {
		extra["appId"] = appID
	}

	kinds := c.StringSlice("flow")
	if len(kinds) == 0 {
		kinds = testgen.FlowKinds()
	}
	rendered := 0
	for _, kind := range kinds {
		flow, ok := testgen.RenderFlow(kind, root, extra)
		if !ok {
			logger.Warn("unknown flow kind %q skipped", kind)
			continue
		}
		if _, err := testgen.WriteFlow(output, kind, flow); err != nil {
			return err
		}
		rendered++
	}

	fmt.Printf("Generated %d test case(s) and %d flow(s), written to %s\n",
		len(cases), rendered, casePath)
	return nil
}
