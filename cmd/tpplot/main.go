// Command tpplot renders the trajectory family of a holonomic blend PTG to a
// PNG, one line per discretized direction.
package main

import (
	"flag"
	"image/color"
	"os"

	"github.com/edaniels/golog"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go.viam.com/tpnav/tpspace"
)

func main() {
	configPath := flag.String("config", "", "path to a holonomic blend PTG JSON config")
	outPath := flag.String("out", "trajectories.png", "output PNG path")
	flag.Parse()

	logger := golog.NewDevelopmentLogger("tpplot")
	if *configPath == "" {
		logger.Fatal("-config is required")
	}
	data, err := os.ReadFile(*configPath)
	if err != nil {
		logger.Fatal(err)
	}
	cfg, err := tpspace.ParseHoloBlendConfig(data)
	if err != nil {
		logger.Fatal(err)
	}
	ptg, err := tpspace.NewHoloBlendPTGFromConfig(cfg, logger)
	if err != nil {
		logger.Fatal(err)
	}

	p := plot.New()
	p.Title.Text = ptg.Description()
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"

	for k := uint(0); k < ptg.AlphaCount(); k++ {
		steps, err := ptg.PathStepCount(k)
		if err != nil {
			logger.Fatal(err)
		}
		pts := make(plotter.XYs, 0, steps+1)
		for s := uint(0); s <= steps; s++ {
			node, err := ptg.PathPose(k, s)
			if err != nil {
				logger.Fatal(err)
			}
			pts = append(pts, plotter.XY{X: node.Point.X, Y: node.Point.Y})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			logger.Fatal(err)
		}
		hue := float64(k) / float64(ptg.AlphaCount())
		line.Color = color.RGBA{R: uint8(55 + 200*hue), G: 90, B: uint8(255 - 200*hue), A: 255}
		line.Width = vg.Points(1)
		p.Add(line)
	}

	if err := p.Save(8*vg.Inch, 8*vg.Inch, *outPath); err != nil {
		logger.Fatal(err)
	}
	logger.Infow("wrote trajectory plot", "path", *outPath, "paths", ptg.AlphaCount())
}
