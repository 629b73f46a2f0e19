package main

import (
	"embed"
	"flag"
	"fmt"
	"os"

	"github.com/chazu/greeble/pkg/config"
	"github.com/chazu/greeble/pkg/feature"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed all:frontend/dist
var assets embed.FS

// Version is set at build time.
var Version = "dev"

func main() {
	cmd, args := "gui", os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "gui":
		err = runGUI(args)
	case "build":
		err = runBuildCmd(args)
	case "catalog":
		err = yaml.NewEncoder(os.Stdout).Encode(feature.Catalog())
	case "version":
		fmt.Println("greeble", Version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "greeble:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `usage: greeble [command] [flags]

commands:
  gui      open the editor (default)
  build    evaluate a script and export the model
  catalog  list the feature generators and their parameters
  version  print the version
`)
}

// setup loads the configuration and its logger.
func setup(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.NewLoader().WithConfigPath(path).Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := cfg.Log.Build()
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func runGUI(args []string) error {
	fs := flag.NewFlagSet("gui", flag.ExitOnError)
	configPath := fs.String("config", "greeble.yaml", "path to config file")
	_ = fs.Parse(args)

	cfg, log, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	app, err := NewAppWithConfig(cfg, log)
	if err != nil {
		return err
	}
	log.Info("starting", zap.String("version", Version))
	return wails.Run(&options.App{
		Title:       "greeble",
		Width:       1280,
		Height:      800,
		AssetServer: &assetserver.Options{Assets: assets},
		OnStartup:   app.startup,
		OnShutdown:  app.shutdown,
		Bind:        []interface{}{app},
	})
}

func runBuildCmd(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", "greeble.yaml", "path to config file")
	out := fs.String("o", "", "output file; the extension picks stl or dxf")
	_ = fs.Parse(args)
	if fs.NArg() != 1 || *out == "" {
		return fmt.Errorf("usage: greeble build [-config file] -o out.stl script.greeble")
	}

	cfg, log, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	res, err := runBuild(cfg, log, fs.Arg(0), *out)
	for _, w := range res.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w.Message)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d nodes, %d triangles\n", *out, res.Stats.Nodes, res.Stats.Triangles)
	return nil
}

// runBuild evaluates the script at path and exports it to out.
func runBuild(cfg *config.Config, log *zap.Logger, path, out string) (EvalResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return EvalResult{}, err
	}
	app, err := NewAppWithConfig(cfg, log)
	if err != nil {
		return EvalResult{}, err
	}
	res := app.Evaluate(string(source))
	if len(res.Errors) > 0 {
		e := res.Errors[0]
		if e.Line > 0 {
			return res, fmt.Errorf("%s:%d: %s", path, e.Line, e.Message)
		}
		return res, fmt.Errorf("%s: %s", path, e.Message)
	}
	return res, app.Export(out)
}
