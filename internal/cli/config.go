package cli

import (
	"fmt"

	"github.com/auraxdata/assetscan/pkg/census"
	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig carries environment-sourced defaults for flag values, so a
// scheduler can configure the scanner without editing its command line.
// Flags always win over the environment.
type envConfig struct {
	Endpoint    string `env:"ASSETSCAN_ENDPOINT" env-default:"https://census.daybreakgames.com"`
	ArchiveDir  string `env:"ASSETSCAN_ARCHIVE_DIR" env-default:"./api-files"`
	ArchiveS3   string `env:"ASSETSCAN_ARCHIVE_S3"`
	LedgerPath  string `env:"ASSETSCAN_LEDGER"`
	Count       int64  `env:"ASSETSCAN_COUNT" env-default:"1000"`
	Concurrency int    `env:"ASSETSCAN_CONCURRENCY" env-default:"4"`
	OnError     string `env:"ASSETSCAN_ON_ERROR" env-default:"skip"`
	NoVerify    bool   `env:"ASSETSCAN_NO_VERIFY" env-default:"false"`
	Debug       bool   `env:"ASSETSCAN_DEBUG" env-default:"false"`
	Pretty      bool   `env:"ASSETSCAN_PRETTY" env-default:"false"`
}

func loadEnvConfig() (envConfig, error) {
	var cfg envConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read environment config: %w", err)
	}
	return cfg, nil
}

// censusConfig translates common flags to a census client config.
func censusConfig(cf *commonFlags) census.Config {
	cfg := census.DefaultConfig()
	cfg.Endpoint = cf.endpoint
	cfg.Verify = !cf.noVerify
	return cfg
}
