// Package cmd provides the command-line interface of the simulator.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/sarchlab/pagesim/mem/paging"
	"github.com/sarchlab/pagesim/shell"
	"github.com/sarchlab/pagesim/simulation"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// Execute runs the command line and exits with a non-zero code on failure.
func Execute() {
	err := NewRootCommand().ExecuteContext(context.Background())
	if err != nil {
		atexit.Exit(1)
	}
}

// NewRootCommand creates the pagesim command with all its subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pagesim",
		Short: "Pagesim simulates a paged memory manager.",
		Long: `Pagesim simulates a paged memory manager. Jobs are divided into ` +
			`pages that are placed in randomly chosen physical frames, and ` +
			`logical addresses can be resolved into physical ones.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runRoot,
		Version:      Version,
	}

	flags := rootCmd.Flags()
	flags.Int(flagPageSize, 0, "Page size in bytes (1 to 1048576)")
	flags.Int(flagFrameCount, 0, "Number of physical frames (1 to 1000)")
	flags.Int64(flagSeed, 0, "Seed of the frame placement")
	flags.Int(flagMaxJobSize, paging.DefaultMaxJobSize,
		"Largest admissible job size in bytes")
	flags.String(flagRecord, "",
		"Record the events into <path>.sqlite3, or into a generated file "+
			"if the path is empty")
	flags.Lookup(flagRecord).NoOptDefVal = recordDefault
	flags.Bool(flagLog, false, "Log the engine events to stderr")
	flags.Bool(flagMonitor, false, "Serve the engine state over HTTP")
	flags.Int(flagMonitorPort, 0, "Port of the monitor, random if 0")
	flags.Bool(flagOpenBrowser, false, "Open the monitor in a browser")
	flags.String(flagEnvFile, defaultEnvFile,
		"File to load environment variables from")

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newInspectCommand())

	return rootCmd
}

func runRoot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	sh := shell.New(cmd.InOrStdin(), cmd.OutOrStdout())
	sh.Banner()

	pageSize, frameCount, err := sh.AskConfig(cfg.pageSize, cfg.frameCount)
	if errors.Is(err, io.EOF) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("reading configuration: %w", err)
	}

	s, err := buildSimulation(cmd, cfg, pageSize, frameCount)
	if err != nil {
		return fmt.Errorf("building simulation: %w", err)
	}

	err = sh.Run(s.Engine())
	shell.PrintSummary(cmd.OutOrStdout(), s.EventCounter().Stats())

	if termErr := s.Terminate(); termErr != nil && err == nil {
		err = fmt.Errorf("closing recorder: %w", termErr)
	}

	return err
}

func buildSimulation(
	cmd *cobra.Command,
	cfg config,
	pageSize, frameCount int,
) (*simulation.Simulation, error) {
	b := simulation.MakeBuilder().
		WithPageSize(pageSize).
		WithFrameCount(frameCount).
		WithMaxJobSize(cfg.maxJobSize)

	if cfg.seeded {
		b = b.WithSeed(cfg.seed)
	}

	if cfg.record {
		b = b.WithRecording(cfg.recordPath)
	}

	if cfg.log {
		b = b.WithLogger(log.New(cmd.ErrOrStderr(), "pagesim: ", log.LstdFlags))
	}

	if cfg.monitor {
		b = b.WithMonitor(cfg.monitorPort)

		if cfg.openBrowser {
			b = b.WithBrowser()
		}
	}

	return b.Build()
}
