// Package config gathers the engine settings from defaults, an optional
// .env file and the process environment.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Environment variables read by Load.
const (
	EnvTitle   = "BLAST_TITLE"
	EnvWidth   = "BLAST_WIDTH"
	EnvHeight  = "BLAST_HEIGHT"
	EnvDebug   = "BLAST_DEBUG"
	EnvShader  = "BLAST_SHADER"
	EnvTexture = "BLAST_TEXTURE"
	EnvMesh    = "BLAST_MESH"
)

// DefaultEnvFile is read by Load when it exists.
const DefaultEnvFile = ".env"

// Config holds the settings of one engine run.
type Config struct {
	Title  string
	Width  int
	Height int

	// Debug enables the validation layers and debug logging.
	Debug bool

	ShaderPath string

	// TexturePath is optional, a white texture is used without it.
	TexturePath string

	// MeshPath is an OBJ file. The built-in quad is drawn without it.
	MeshPath string
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Title:      "Blast Engine",
		Width:      1280,
		Height:     720,
		ShaderPath: "shaders/shader.spv",
	}
}

// Load starts from Default, applies envFile if it exists and then the
// process environment. The result is not validated, callers may still
// override it and must call Validate afterwards.
func Load(envFile string) (Config, error) {
	cfg := Default()

	values := map[string]string{}
	if envFile != "" {
		fileValues, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			values = fileValues
		case !errors.Is(err, os.ErrNotExist):
			return cfg, errors.Wrapf(err, "reading %s", envFile)
		}
	}

	for _, key := range []string{
		EnvTitle, EnvWidth, EnvHeight, EnvDebug, EnvShader, EnvTexture, EnvMesh,
	} {
		if value, ok := os.LookupEnv(key); ok {
			values[key] = value
		}
	}

	err := cfg.apply(values)
	return cfg, err
}

func (c *Config) apply(values map[string]string) error {
	if v, ok := values[EnvTitle]; ok {
		c.Title = v
	}
	if v, ok := values[EnvShader]; ok {
		c.ShaderPath = v
	}
	if v, ok := values[EnvTexture]; ok {
		c.TexturePath = v
	}
	if v, ok := values[EnvMesh]; ok {
		c.MeshPath = v
	}

	var err error
	if v, ok := values[EnvWidth]; ok {
		if c.Width, err = strconv.Atoi(v); err != nil {
			return errors.Wrapf(err, "parsing %s", EnvWidth)
		}
	}
	if v, ok := values[EnvHeight]; ok {
		if c.Height, err = strconv.Atoi(v); err != nil {
			return errors.Wrapf(err, "parsing %s", EnvHeight)
		}
	}
	if v, ok := values[EnvDebug]; ok {
		if c.Debug, err = strconv.ParseBool(v); err != nil {
			return errors.Wrapf(err, "parsing %s", EnvDebug)
		}
	}

	return nil
}

// Validate rejects settings the engine cannot start with.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Errorf("invalid window size %dx%d", c.Width, c.Height)
	}
	if c.ShaderPath == "" {
		return errors.New("no shader path")
	}
	return nil
}
