package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sarchlab/pagesim/shell"
	"github.com/spf13/cobra"
)

const (
	flagPageSize    = "page-size"
	flagFrameCount  = "frame-count"
	flagSeed        = "seed"
	flagMaxJobSize  = "max-job-size"
	flagRecord      = "record"
	flagLog         = "log"
	flagMonitor     = "monitor"
	flagMonitorPort = "monitor-port"
	flagOpenBrowser = "open-browser"
	flagEnvFile     = "env-file"

	recordDefault  = "-"
	defaultEnvFile = ".env"
)

// Environment variables that configure the simulator when the matching flag
// is not given.
const (
	EnvPageSize   = "PAGESIM_PAGE_SIZE"
	EnvFrameCount = "PAGESIM_FRAME_COUNT"
	EnvSeed       = "PAGESIM_SEED"
	EnvRecord     = "PAGESIM_RECORD"
)

type config struct {
	pageSize   int
	frameCount int
	maxJobSize int
	seed       int64
	seeded     bool

	record     bool
	recordPath string
	log        bool

	monitor     bool
	monitorPort int
	openBrowser bool
}

func loadConfig(cmd *cobra.Command) (config, error) {
	flags := cmd.Flags()
	cfg := config{}

	if err := loadEnvFile(cmd); err != nil {
		return cfg, err
	}

	var err error

	cfg.pageSize, _, err = intSetting(cmd, flagPageSize, EnvPageSize)
	if err != nil {
		return cfg, err
	}

	if cfg.pageSize != 0 && (cfg.pageSize < 1 || cfg.pageSize > shell.MaxPageSize) {
		return cfg, fmt.Errorf("page size must be between 1 and %d, got %d",
			shell.MaxPageSize, cfg.pageSize)
	}

	cfg.frameCount, _, err = intSetting(cmd, flagFrameCount, EnvFrameCount)
	if err != nil {
		return cfg, err
	}

	if cfg.frameCount != 0 &&
		(cfg.frameCount < 1 || cfg.frameCount > shell.MaxFrameCount) {
		return cfg, fmt.Errorf("frame count must be between 1 and %d, got %d",
			shell.MaxFrameCount, cfg.frameCount)
	}

	seed, seeded, err := intSetting(cmd, flagSeed, EnvSeed)
	if err != nil {
		return cfg, err
	}

	cfg.seed = int64(seed)
	cfg.seeded = seeded

	cfg.maxJobSize, _ = flags.GetInt(flagMaxJobSize)
	cfg.log, _ = flags.GetBool(flagLog)
	cfg.monitor, _ = flags.GetBool(flagMonitor)
	cfg.monitorPort, _ = flags.GetInt(flagMonitorPort)
	cfg.openBrowser, _ = flags.GetBool(flagOpenBrowser)

	cfg.record, cfg.recordPath = recordSetting(cmd)

	if cfg.openBrowser && !cfg.monitor {
		return cfg, errors.New("--open-browser requires --monitor")
	}

	return cfg, nil
}

// loadEnvFile loads the env file. A missing default file is not an error.
func loadEnvFile(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString(flagEnvFile)

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed(flagEnvFile) {
		return nil
	}

	return fmt.Errorf("loading %s: %w", path, err)
}

// intSetting reads an integer from the flag, or from the environment when the
// flag is not given. The bool result tells if any of them was set.
func intSetting(cmd *cobra.Command, flag, env string) (int, bool, error) {
	if cmd.Flags().Changed(flag) {
		if flag == flagSeed {
			v, err := cmd.Flags().GetInt64(flag)
			return int(v), true, err
		}

		v, err := cmd.Flags().GetInt(flag)

		return v, true, err
	}

	s, ok := os.LookupEnv(env)
	if !ok || s == "" {
		return 0, false, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer, got %q", env, s)
	}

	return v, true, nil
}

func recordSetting(cmd *cobra.Command) (bool, string) {
	if cmd.Flags().Changed(flagRecord) {
		path, _ := cmd.Flags().GetString(flagRecord)
		if path == recordDefault {
			path = ""
		}

		return true, path
	}

	path, ok := os.LookupEnv(EnvRecord)
	if !ok {
		return false, ""
	}

	if path == recordDefault {
		path = ""
	}

	return true, path
}
