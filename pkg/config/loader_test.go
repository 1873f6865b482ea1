/*
Copyright 2024 The Shelfline Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Loader", func() {
	var (
		tempDir    string
		configFile string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())

		configFile = filepath.Join(tempDir, "config.yaml")
	})

	AfterEach(func() {
		if tempDir != "" {
			os.RemoveAll(tempDir)
		}
		envVars := []string{
			"SHELFLINE_SITE_LANGUAGE",
			"SHELFLINE_PROXY_HOST",
			"SHELFLINE_PROXY_PORT",
			"SHELFLINE_DPLA_API_KEY",
			"SHELFLINE_SOCIAL_MAX_TAG_LENGTH",
			"SHELFLINE_LOGGING_LEVEL",
			"SHELFLINE_METRICS_ENABLED",
			"SHELFLINE_HTTP_TIMEOUT",
		}
		for _, env := range envVars {
			os.Unsetenv(env)
		}
	})

	Describe("NewLoader", func() {
		It("should default the environment prefix", func() {
			loader := NewLoader()
			Expect(loader.EnvPrefix).To(Equal("SHELFLINE"))
			Expect(loader.ConfigFile).To(BeEmpty())
		})
	})

	Describe("Load", func() {
		Context("without a config file", func() {
			It("should return the defaults", func() {
				config, err := NewLoader().Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(config.Site.Language).To(Equal("en"))
				Expect(config.Social.MaxTagLength).To(Equal(0))
				Expect(config.DPLA.APIKey).To(BeEmpty())
			})
		})

		Context("when loading from a valid YAML file", func() {
			It("should load configuration correctly", func() {
				yamlContent := `
site:
  language: "de"
proxy:
  host: "proxy.example.org"
  port: 3128
  type: "http"
http:
  timeout: "5s"
social:
  maxTagLength: 32
dpla:
  apiKey: "abc123"
searchTabs:
  - id: "Solr"
    label: "Catalog"
  - id: "Summon"
    label: "Articles"
backends:
  Summon:
    type: "summon"
    url: "http://summon.example.org/api"
`
				Expect(os.WriteFile(configFile, []byte(yamlContent), 0o600)).To(Succeed())

				config, err := NewLoader().WithConfigFile(configFile).Load()
				Expect(err).NotTo(HaveOccurred())

				Expect(config.Site.Language).To(Equal("de"))
				Expect(config.Proxy.Host).To(Equal("proxy.example.org"))
				Expect(config.Proxy.Port).To(Equal(3128))
				Expect(config.HTTP.Timeout).To(Equal(5 * time.Second))
				Expect(config.Social.MaxTagLength).To(Equal(32))
				Expect(config.DPLA.APIKey).To(Equal("abc123"))
				Expect(config.SearchTabs).To(HaveLen(2))
				Expect(config.Backends).To(HaveKey("Solr"))
				Expect(config.Backends).To(HaveKey("Summon"))
				Expect(config.Backends["Summon"].Type).To(Equal("summon"))
			})
		})

		Context("when the YAML file is malformed", func() {
			It("should return an error", func() {
				Expect(os.WriteFile(configFile, []byte("site: [unclosed"), 0o600)).To(Succeed())

				_, err := NewLoader().WithConfigFile(configFile).Load()
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to load config from file"))
			})
		})

		Context("when the file does not exist", func() {
			It("should return an error", func() {
				_, err := NewLoader().WithConfigFile(filepath.Join(tempDir, "missing.yaml")).Load()
				Expect(err).To(HaveOccurred())
			})
		})

		Context("with environment overrides", func() {
			It("should prefer environment variables over the file", func() {
				Expect(os.WriteFile(configFile, []byte("site:\n  language: \"fr\"\n"), 0o600)).To(Succeed())

				os.Setenv("SHELFLINE_SITE_LANGUAGE", "es")
				os.Setenv("SHELFLINE_DPLA_API_KEY", "from-env")
				os.Setenv("SHELFLINE_SOCIAL_MAX_TAG_LENGTH", "16")
				os.Setenv("SHELFLINE_METRICS_ENABLED", "off")
				os.Setenv("SHELFLINE_HTTP_TIMEOUT", "2s")

				config, err := NewLoader().WithConfigFile(configFile).Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(config.Site.Language).To(Equal("es"))
				Expect(config.DPLA.APIKey).To(Equal("from-env"))
				Expect(config.Social.MaxTagLength).To(Equal(16))
				Expect(config.Observability.Metrics.Enabled).To(BeFalse())
				Expect(config.HTTP.Timeout).To(Equal(2 * time.Second))
			})

			It("should keep the previous value for unparsable numbers", func() {
				os.Setenv("SHELFLINE_PROXY_PORT", "not-a-number")

				config, err := NewLoader().Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(config.Proxy.Port).To(Equal(0))
			})

			It("should reject an invalid logging level", func() {
				os.Setenv("SHELFLINE_LOGGING_LEVEL", "chatty")

				_, err := NewLoader().Load()
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("invalid configuration"))
			})
		})
	})

	Describe("Save", func() {
		It("should round trip through a file", func() {
			config := DefaultConfig()
			config.Site.Language = "it"
			config.DPLA.APIKey = "saved"

			Expect(config.Save(configFile)).To(Succeed())

			loaded, err := LoadFromFile(configFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Site.Language).To(Equal("it"))
			Expect(loaded.DPLA.APIKey).To(Equal("saved"))
		})
	})
})
