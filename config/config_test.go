package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"blast-engine/config"
)

var _ = Describe("Load", func() {
	var dir string

	envKeys := []string{
		config.EnvTitle, config.EnvWidth, config.EnvHeight, config.EnvDebug,
		config.EnvShader, config.EnvTexture, config.EnvMesh,
	}

	writeEnv := func(content string) string {
		path := filepath.Join(dir, "blast.env")
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "blast-config")
		Expect(err).NotTo(HaveOccurred())

		for _, key := range envKeys {
			Expect(os.Unsetenv(key)).To(Succeed())
		}
	})

	AfterEach(func() {
		for _, key := range envKeys {
			Expect(os.Unsetenv(key)).To(Succeed())
		}
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	It("uses the defaults when the file does not exist", func() {
		cfg, err := config.Load(filepath.Join(dir, "missing.env"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.Default()))
	})

	It("reads the env file", func() {
		path := writeEnv("BLAST_TITLE=Test\nBLAST_WIDTH=640\nBLAST_HEIGHT=480\nBLAST_DEBUG=true\n")

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Title).To(Equal("Test"))
		Expect(cfg.Width).To(Equal(640))
		Expect(cfg.Height).To(Equal(480))
		Expect(cfg.Debug).To(BeTrue())
		Expect(cfg.ShaderPath).To(Equal(config.Default().ShaderPath))
	})

	It("lets the environment override the file", func() {
		path := writeEnv("BLAST_WIDTH=640\nBLAST_MESH=file.obj\n")
		Expect(os.Setenv(config.EnvWidth, "1920")).To(Succeed())

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Width).To(Equal(1920))
		Expect(cfg.MeshPath).To(Equal("file.obj"))
	})

	It("rejects a width which is not a number", func() {
		Expect(os.Setenv(config.EnvWidth, "wide")).To(Succeed())

		_, err := config.Load("")
		Expect(err).To(HaveOccurred())
	})

	It("leaves validation to the caller so later overrides count", func() {
		path := writeEnv("BLAST_WIDTH=0\n")

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Validate()).NotTo(Succeed())

		cfg.Width = 800
		Expect(cfg.Validate()).To(Succeed())
	})

	It("rejects an empty shader path", func() {
		cfg := config.Default()
		cfg.ShaderPath = ""
		Expect(cfg.Validate()).NotTo(Succeed())
	})
})
