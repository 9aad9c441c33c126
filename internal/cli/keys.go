// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/toeirei/keymaster-blacklist/internal/blacklist"
	"github.com/toeirei/keymaster-blacklist/internal/fingerprint"
	"github.com/toeirei/keymaster-blacklist/internal/i18n"
	"github.com/toeirei/keymaster-blacklist/internal/logging"
	"github.com/toeirei/keymaster-blacklist/internal/sshkey"
)

var (
	// ErrBlacklisted is returned by the check command when at least one key is listed.
	ErrBlacklisted = errors.New("blacklisted keys found")
	// ErrUnchecked is returned by the check command when some keys could not
	// be read or fingerprinted.
	ErrUnchecked = errors.New("some keys could not be checked")
)

// readKeys parses every key in path ("-" reads stdin). Unreadable entries
// are logged and skipped and their number is returned; a file without any
// key is an error.
func readKeys(cmd *cobra.Command, path string) ([]sshkey.Parsed, int, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	keys, errs := sshkey.ParseAll(r)
	for _, err := range errs {
		logging.Warnf("%s", i18n.T("parse.skipped", err))
	}
	if len(keys) == 0 {
		return nil, len(errs), errors.New(i18n.T("parse.no_keys", path))
	}
	return keys, len(errs), nil
}

func newFingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <keyfile|->",
		Short: "Print the blacklist fingerprint of every key in a file",
		Long: `Reads OpenSSH authorized_keys lines or PEM public keys and certificates and
prints one line per key: fingerprint, keyspec and comment.`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{noStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, _, err := readKeys(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printed := 0
			for _, k := range keys {
				fp, err := fingerprint.Compute(k.Key)
				if err != nil {
					logging.Warnf("%s", i18n.T("fingerprint.unsupported", k.Line, err))
					continue
				}
				_, _ = fmt.Fprintf(out, "%s  %s  %s\n", fp, sshkey.Keyspec(k.Key), k.Comment)
				printed++
			}
			if printed == 0 {
				return fingerprint.ErrUnsupportedKeyType
			}
			return nil
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <keyfile|->",
		Short: "Blacklist every key in a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, _, err := readKeys(cmd, args[0])
			if err != nil {
				return err
			}
			for _, k := range keys {
				e, err := blacklist.ForKey(k.Key, sshkey.Keyspec(k.Key))
				if err != nil {
					logging.Warnf("%s", i18n.T("fingerprint.unsupported", k.Line, err))
					continue
				}
				if err := a.addEntry(cmd, e); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newAddFingerprintCmd(a *app) *cobra.Command {
	var keyspec string
	cmd := &cobra.Command{
		Use:   "add-fingerprint <sha256-hex>",
		Short: "Blacklist a key by its fingerprint",
		Long: `Adds a fingerprint obtained elsewhere, for example from another blacklist
or from the 'fingerprint' command on a different machine.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fp, err := fingerprint.Normalize(args[0])
			if err != nil {
				return err
			}
			return a.addEntry(cmd, blacklist.NewPublicKeyEntryWith(0, fp, keyspec))
		},
	}
	cmd.Flags().StringVar(&keyspec, "keyspec", "", `Key description stored with the entry, e.g. "RSA2048"`)
	return cmd
}

// addEntry saves e unless an equal entry is already listed.
func (a *app) addEntry(cmd *cobra.Command, e *blacklist.PublicKeyEntry) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	existing, err := a.checker.CheckEntry(ctx, e)
	if err != nil {
		return err
	}
	if existing != nil {
		_, _ = fmt.Fprintln(out, i18n.T("add.exists", existing.ID, existing.String()))
		return nil
	}
	rec := e.Record()
	if err := a.store.SaveEntry(ctx, &rec); err != nil {
		return err
	}
	e.SetID(rec.ID)
	_, _ = fmt.Fprintln(out, i18n.T("add.added", rec.ID, rec.String()))
	return nil
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <keyfile|->",
		Short: "Check keys against the blacklist",
		Long: `Checks every key in the file. The command fails when at least one key is
blacklisted or could not be read, so it can gate scripts and CI jobs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, skipped, err := readKeys(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			st := newStyles(out)

			hits, checked := 0, 0
			for _, k := range keys {
				label := sshkey.Keyspec(k.Key)
				if k.Comment != "" {
					label += " " + k.Comment
				}
				entry, err := a.checker.Check(cmd.Context(), k.Key)
				if err != nil {
					if errors.Is(err, fingerprint.ErrUnsupportedKeyType) {
						logging.Warnf("%s", i18n.T("fingerprint.unsupported", k.Line, err))
						skipped++
						continue
					}
					return err
				}
				checked++
				if entry != nil {
					hits++
					_, _ = fmt.Fprintln(out, st.danger.Render(i18n.T("check.blacklisted", label, entry.ID)))
					continue
				}
				_, _ = fmt.Fprintln(out, st.ok.Render(i18n.T("check.clean", label)))
			}
			_, _ = fmt.Fprintln(out, i18n.T("check.summary", hits, checked))
			if skipped > 0 {
				_, _ = fmt.Fprintln(out, st.danger.Render(i18n.T("check.unchecked", skipped)))
			}
			switch {
			case hits > 0:
				return ErrBlacklisted
			case skipped > 0:
				return ErrUnchecked
			}
			return nil
		},
	}
}
