package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/auto-dns/container-status-sync/internal/aggregate"
	"github.com/auto-dns/container-status-sync/internal/docker"
	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/auto-dns/container-status-sync/internal/exclusion"
	"github.com/auto-dns/container-status-sync/internal/logger"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Resolve the aggregated status of containers read from stdin",
	Long: "Reads `docker inspect` JSON (or, with --strings, one pre-rendered status per line) " +
		"from stdin and prints the aggregated status.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFrom(cmd)
		log := logger.SetupLogger(&cfg.Logging)

		opts := aggregateOptions{}
		opts.strings, _ = cmd.Flags().GetBool("strings")
		opts.maxRestarts, _ = cmd.Flags().GetInt("max-restarts")
		if path, _ := cmd.Flags().GetString("compose"); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading compose file: %w", err)
			}
			opts.compose = string(data)
		}

		status, err := aggregateInput(cmd.InOrStdin(), opts, log)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), status)
		return err
	},
}

type aggregateOptions struct {
	strings bool
	compose string
	// maxRestarts below zero derives the signal from the observations.
	maxRestarts int
}

func aggregateInput(in io.Reader, opts aggregateOptions, log zerolog.Logger) (domain.AggregatedStatus, error) {
	agg := aggregate.NewAggregator(log)

	if opts.strings {
		var statuses []string
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				statuses = append(statuses, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return domain.AggregatedStatus{}, fmt.Errorf("reading statuses: %w", err)
		}
		return agg.ResolveStrings(statuses), nil
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return domain.AggregatedStatus{}, fmt.Errorf("reading inspect output: %w", err)
	}
	observations, err := docker.DecodeInspectJSON(data)
	if err != nil {
		return domain.AggregatedStatus{}, err
	}

	maxRestarts := opts.maxRestarts
	if maxRestarts < 0 {
		maxRestarts = aggregate.MaxRestartCount(observations)
	}
	excluded := exclusion.ExcludedServiceNames(opts.compose, log)
	return exclusion.NewResolver(agg).Resolve(observations, excluded, maxRestarts), nil
}

func init() {
	aggregateCmd.Flags().Bool("strings", false, "read one pre-rendered status string per line")
	aggregateCmd.Flags().String("compose", "", "compose file used to compute excluded services")
	aggregateCmd.Flags().Int("max-restarts", -1, "restart-count signal (default: highest restart count observed)")
}
