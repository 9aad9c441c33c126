// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package cli sets up the command-line interface for keyblacklist using the
// Cobra library. It defines the root command, the subcommands that manage
// and query the public key blacklist, and the shared start-up wiring.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/toeirei/keymaster-blacklist/buildvars"
	"github.com/toeirei/keymaster-blacklist/internal/blacklist"
	"github.com/toeirei/keymaster-blacklist/internal/config"
	"github.com/toeirei/keymaster-blacklist/internal/db"
	"github.com/toeirei/keymaster-blacklist/internal/fingerprint"
	"github.com/toeirei/keymaster-blacklist/internal/i18n"
	"github.com/toeirei/keymaster-blacklist/internal/logging"
)

// app holds what commands share once PersistentPreRunE has run.
type app struct {
	cfg     config.Config
	cfgUsed string
	store   db.Store
	checker *blacklist.Checker
}

// openStore is swapped by tests.
var openStore = db.New

// noStore marks commands that must run without a database.
const noStore = "no-store"

// NewRootCmd creates and configures a new root cobra command.
// This function is used to create the main application command as well as
// fresh instances for isolated testing.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyblacklist",
		Short: "keyblacklist maintains a blacklist of public key fingerprints.",
		Long: `keyblacklist records SHA-256 fingerprints of public keys that must not be
trusted and checks keys against that list. RSA keys are identified by their
modulus alone, every other key family by its SubjectPublicKeyInfo encoding.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	v, c, d := buildvars.Resolve(nil)
	cmd.Version = compositeVersion(v, c, d)

	cmd.PersistentFlags().String("config", "", "config file")
	cmd.PersistentFlags().String("database.type", "sqlite", "Database type (sqlite, postgres, mysql)")
	cmd.PersistentFlags().String("database.dsn", "./keyblacklist.db", "Database connection string (DSN)")
	cmd.PersistentFlags().String("language", "en", `Output language ("en", "de")`)
	cmd.PersistentFlags().BoolP("debug", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newFingerprintCmd(),
		newAddCmd(a),
		newAddFingerprintCmd(a),
		newCheckCmd(a),
		newListCmd(a),
		newRemoveCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newRestoreCmd(a),
		newMaintenanceCmd(a),
		newAuditLogCmd(a),
		newInitConfigCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the CLI entrypoint. The cmd/keyblacklist main package should
// call this function and handle process exit.
func Execute() error {
	a := &app{}
	err := newRootCmd(a).Execute()
	if cerr := a.close(); cerr != nil {
		logging.Errorf("closing store: %v", cerr)
		if err == nil {
			err = cerr
		}
	}
	return err
}

func compositeVersion(v, c, d string) string {
	out := v
	if c != "" && c != "dev" {
		out += " (" + c + ")"
	}
	if d != "" {
		out += " built: " + d
	}
	return out
}

func (a *app) setup(cmd *cobra.Command) error {
	configPath, err := configPathFromFlags(cmd)
	if err != nil {
		return err
	}
	a.cfg, a.cfgUsed, err = config.LoadConfig[config.Config](cmd, config.Defaults(), configPath)
	if err != nil {
		return errors.New(i18n.T("config.error_load", err))
	}

	logging.SetDebug(a.cfg.Debug)
	db.SetDebug(a.cfg.Debug)
	i18n.Init(a.cfg.Language)
	if a.cfgUsed != "" {
		logging.Debugf("using config %s", a.cfgUsed)
	}

	// Nothing can be checked or stored without a working digest.
	if err := fingerprint.CheckDigest(); err != nil {
		return errors.New(i18n.T("digest.unavailable", err))
	}

	if cmd.Annotations[noStore] == "true" {
		return nil
	}
	st, err := openStore(a.cfg.Database.Type, a.cfg.Database.Dsn)
	if err != nil {
		return errors.New(i18n.T("config.error_init_db", err))
	}
	a.store = st
	a.checker = blacklist.NewChecker(st)
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	a.checker = nil
	return err
}

func configPathFromFlags(cmd *cobra.Command) (*string, error) {
	// Only proceed if the user has explicitly set the --config flag.
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}
