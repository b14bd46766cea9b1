package main

import (
	"flag"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"blast-engine/config"
	"blast-engine/device"
	"blast-engine/engine"
	"blast-engine/mesh"
	"blast-engine/shaders"
	"blast-engine/window"
)

func init() {
	// This is needed to arrange that main() runs on main thread.
	// See documentation for functions that are only allowed to be called
	// from the main thread.
	runtime.LockOSThread()

	flag.StringVar(&args.envFile, "env", config.DefaultEnvFile, "File with BLAST_* settings")
	flag.BoolVar(&args.debug, "debug", false, "Enable Vulkan validation layers and debug logs")
	flag.StringVar(&args.title, "title", "", "Window title")
	flag.IntVar(&args.width, "width", 0, "Initial window width")
	flag.IntVar(&args.height, "height", 0, "Initial window height")
	flag.StringVar(&args.shader, "shader", "", "Compiled SPIR-V shader module")
	flag.StringVar(&args.texture, "texture", "", "Texture image, white when empty")
	flag.StringVar(&args.mesh, "mesh", "", "OBJ model, a quad when empty")
}

var args struct {
	envFile string
	debug   bool
	title   string
	width   int
	height  int
	shader  string
	texture string
	mesh    string
}

func main() {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := loadConfig()
	if err != nil {
		log.WithError(err).Error("loading configuration")
		os.Exit(1)
	}

	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("engine stopped")
		os.Exit(1)
	}
}

// loadConfig applies the flags given on the command line over the loaded
// configuration.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(args.envFile)
	if err != nil {
		return cfg, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "debug":
			cfg.Debug = args.debug
		case "title":
			cfg.Title = args.title
		case "width":
			cfg.Width = args.width
		case "height":
			cfg.Height = args.height
		case "shader":
			cfg.ShaderPath = args.shader
		case "texture":
			cfg.TexturePath = args.texture
		case "mesh":
			cfg.MeshPath = args.mesh
		}
	})

	return cfg, cfg.Validate()
}

func run(cfg config.Config, log logrus.FieldLogger) error {
	code, err := shaders.Load(cfg.ShaderPath)
	if err != nil {
		return err
	}

	model := mesh.Quad()
	if cfg.MeshPath != "" {
		if model, err = mesh.LoadOBJFile(cfg.MeshPath); err != nil {
			return err
		}
	}

	win, err := window.New(cfg.Title, cfg.Width, cfg.Height)
	if err != nil {
		return errors.Wrap(err, "initWindow")
	}
	defer win.Destroy()

	ctx, err := device.Bootstrap(win, device.Config{
		AppName:    cfg.Title,
		Validation: cfg.Debug,
	}, log)
	if err != nil {
		return errors.Wrap(err, "initVulkan")
	}
	defer ctx.Destroy()

	eng, err := engine.New(ctx.GPU, win, engine.Options{
		Families:    ctx.Families,
		Shader:      code,
		Mesh:        model,
		TexturePath: cfg.TexturePath,
		Log:         log,
	})
	if err != nil {
		return errors.Wrap(err, "initEngine")
	}
	defer eng.Destroy()

	return errors.Wrap(eng.Run(), "mainLoop")
}
