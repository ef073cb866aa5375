// Package cli contains the depthmesh command line: one-shot commands and an
// interactive prompt loop.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Global flags.
	configFlag     = "config"
	debugFlag      = "debug"
	modelURLFlag   = "model-url"
	fakeModelFlag  = "fake-model"
	noProgressFlag = "no-progress"

	// Command flags.
	imageFlag   = "image"
	objFlag     = "obj"
	figureFlag  = "figure"
	plotFlag    = "plot"
	previewFlag = "preview"
	pcdFlag     = "pcd"
	pcdBinFlag  = "pcd-binary"
	outFlag     = "out"
	yawFlag     = "yaw"
	pitchFlag   = "pitch"
)

// NewApp returns a new app with Writer set to out and ErrWriter set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return newApp(out, errOut, huhPrompter{})
}

func newApp(out, errOut io.Writer, prompter Prompter) *cli.App {
	return &cli.App{
		Name:            "depthmesh",
		Usage:           "estimate depth from an image and build a 3D mesh",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    configFlag,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    debugFlag,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  modelURLFlag,
				Usage: "depth model server `URL`, overriding the config",
			},
			&cli.BoolFlag{
				Name:  fakeModelFlag,
				Usage: "synthesize depth locally instead of calling a model server",
			},
			&cli.BoolFlag{
				Name:  noProgressFlag,
				Usage: "do not show progress spinners",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "generate",
				Usage:     "build a convex hull mesh from an image",
				UsageText: "depthmesh generate --image FILE [--obj FILE] [--figure FILE] [--plot FILE] [--preview FILE] [--pcd FILE [--pcd-binary]]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     imageFlag,
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "JPEG or PNG `FILE` to process",
					},
					&cli.StringFlag{
						Name:  objFlag,
						Usage: "save the mesh as OBJ to `FILE` (.obj is added if no extension)",
					},
					&cli.StringFlag{
						Name:  figureFlag,
						Usage: "save the image and depth map side by side to a PNG `FILE`",
					},
					&cli.StringFlag{
						Name:  plotFlag,
						Usage: "save a depth heat map to a PNG `FILE`",
					},
					&cli.StringFlag{
						Name:  previewFlag,
						Usage: "save a shaded render of the mesh to a PNG `FILE`",
					},
					&cli.StringFlag{
						Name:  pcdFlag,
						Usage: "save the point cloud to a PCD `FILE`",
					},
					&cli.BoolFlag{
						Name:  pcdBinFlag,
						Usage: "write the point cloud as binary PCD",
					},
					&cli.Float64Flag{
						Name:  yawFlag,
						Value: 30,
						Usage: "preview rotation about the vertical axis in degrees",
					},
					&cli.Float64Flag{
						Name:  pitchFlag,
						Value: -20,
						Usage: "preview tilt in degrees",
					},
				},
				Action: GenerateAction,
			},
			{
				Name:      "depth",
				Usage:     "save the depth map of an image next to the image",
				UsageText: "depthmesh depth --image FILE --out FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     imageFlag,
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "JPEG or PNG `FILE` to process",
					},
					&cli.StringFlag{
						Name:     outFlag,
						Aliases:  []string{"o"},
						Required: true,
						Usage:    "PNG `FILE` to write the figure to",
					},
					&cli.StringFlag{
						Name:  plotFlag,
						Usage: "also save a depth heat map to a PNG `FILE`",
					},
				},
				Action: DepthAction,
			},
			{
				Name:      "mesh",
				Usage:     "build a convex hull mesh from a saved point cloud",
				UsageText: "depthmesh mesh --pcd FILE [--obj FILE] [--preview FILE]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     pcdFlag,
						Required: true,
						Usage:    "PCD `FILE` to read, as written by generate --pcd",
					},
					&cli.StringFlag{
						Name:  objFlag,
						Usage: "save the mesh as OBJ to `FILE` (.obj is added if no extension)",
					},
					&cli.StringFlag{
						Name:  previewFlag,
						Usage: "save a shaded render of the mesh to a PNG `FILE`",
					},
					&cli.Float64Flag{
						Name:  yawFlag,
						Value: 30,
						Usage: "preview rotation about the vertical axis in degrees",
					},
					&cli.Float64Flag{
						Name:  pitchFlag,
						Value: -20,
						Usage: "preview tilt in degrees",
					},
				},
				Action: MeshAction,
			},
			{
				Name:  "interactive",
				Usage: "choose images and save meshes through prompts",
				Action: func(c *cli.Context) error {
					return interactiveAction(c, prompter)
				},
			},
		},
	}
}
