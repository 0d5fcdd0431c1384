package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/auto-dns/container-status-sync/internal/shell"
)

var hardenCmd = &cobra.Command{
	Use:   "harden",
	Short: "Rewrite a command script from stdin for a non-root sudo user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFrom(cmd)
		user, _ := cmd.Flags().GetString("user")
		single, _ := cmd.Flags().GetBool("single")
		return harden(cmd.InOrStdin(), cmd.OutOrStdout(), shell.NewHardener(cfg.Hardener.OwnedRoots), user, single)
	},
}

func harden(in io.Reader, out io.Writer, h *shell.Hardener, user string, single bool) error {
	var lines []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading commands: %w", err)
	}

	var result []string
	if single {
		for _, line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			result = append(result, h.HardenLineForSudo(line, user))
		}
	} else {
		result = h.HardenForSudo(lines, user)
	}

	for _, line := range result {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	hardenCmd.Flags().String("user", "ubuntu", "remote user that owns created directories")
	hardenCmd.Flags().Bool("single", false, "treat each line as an independent ad-hoc command")
}
