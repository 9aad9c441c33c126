// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/toeirei/keymaster-blacklist/buildvars"
	"github.com/toeirei/keymaster-blacklist/internal/config"
	"github.com/toeirei/keymaster-blacklist/internal/i18n"
	"github.com/toeirei/keymaster-blacklist/internal/logging"
)

func newMaintenanceCmd(a *app) *cobra.Command {
	var timeout int
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Run engine specific database maintenance",
		Long: `SQLite: PRAGMA optimize, VACUUM, WAL checkpoint and an integrity check.
PostgreSQL: VACUUM ANALYZE. MySQL: OPTIMIZE TABLE on the blacklist tables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
				defer cancel()
			}
			start := time.Now()
			if err := a.store.RunMaintenance(ctx); err != nil {
				return err
			}
			logging.Infof("maintenance finished in %s", time.Since(start).Round(time.Millisecond))
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("maintenance.done"))
			return nil
		},
	}
	cmd.Flags().IntVar(&timeout, "timeout", 0, "Timeout in seconds for maintenance (0 means no timeout)")
	return cmd
}

func newAuditLogCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit-log",
		Short: "Show the audit trail, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := a.store.GetAllAuditLogEntries(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(logs) > limit {
				logs = logs[:limit]
			}
			out := cmd.OutOrStdout()
			if len(logs) == 0 {
				_, _ = fmt.Fprintln(out, i18n.T("audit.empty"))
				return nil
			}
			rows := make([][]string, 0, len(logs))
			for _, l := range logs {
				rows = append(rows, []string{l.Timestamp, l.Username, l.Action, l.Details})
			}
			_, _ = fmt.Fprintln(out, newStyles(out).renderTable([]string{"TIMESTAMP", "USER", "ACTION", "DETAILS"}, rows))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many entries (0 shows all)")
	return cmd
}

func newInitConfigCmd(a *app) *cobra.Command {
	var system bool
	cmd := &cobra.Command{
		Use:         "init-config",
		Short:       "Write the effective configuration to the config file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteConfigFile(&a.cfg, system)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("config.written", path))
			return nil
		},
	}
	cmd.Flags().BoolVar(&system, "system", false, "Write the system-wide config instead of the user config")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			v, c, d := buildvars.Resolve(nil)
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "version: %s\n", v)
			if c != "" {
				_, _ = fmt.Fprintf(out, "commit: %s\n", c)
			}
			if d != "" {
				_, _ = fmt.Fprintf(out, "built: %s\n", d)
			}
			return nil
		},
	}
}
