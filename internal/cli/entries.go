// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/toeirei/keymaster-blacklist/internal/db"
	"github.com/toeirei/keymaster-blacklist/internal/fingerprint"
	"github.com/toeirei/keymaster-blacklist/internal/i18n"
	"github.com/toeirei/keymaster-blacklist/internal/model"
	"golang.org/x/term"
)

// stdinIsTerminal is swapped by tests.
var stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

func newListCmd(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "list [filter...]",
		Short: "List blacklist entries",
		Long: `Lists entries ordered by id. Filter words narrow the list to entries whose
fingerprint or keyspec contains every word.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var k model.Kind
			if kind != "" {
				parsed, err := model.ParseKind(kind)
				if err != nil {
					return err
				}
				k = parsed
			}
			entries, err := a.store.ListEntries(cmd.Context(), k)
			if err != nil {
				return err
			}
			entries = db.FilterEntriesByTokens(entries, args)

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(out, i18n.T("list.empty"))
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{strconv.Itoa(e.ID), string(e.Type), e.Value, e.Data})
			}
			headers := []string{i18n.T("list.col_id"), i18n.T("list.col_type"), i18n.T("list.col_fingerprint"), i18n.T("list.col_keyspec")}
			_, _ = fmt.Fprintln(out, newStyles(out).renderTable(headers, rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "type", "", "Only list entries of this type (PUBLICKEY)")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a blacklist entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid entry id %q: %w", args[0], err)
			}
			ctx := cmd.Context()
			e, err := a.store.GetEntry(ctx, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !yes {
				if !stdinIsTerminal() {
					return errors.New(i18n.T("remove.need_yes"))
				}
				_, _ = fmt.Fprint(out, i18n.T("remove.confirm", e.ID, e.String()))
				if !confirmed(cmd.InOrStdin()) {
					_, _ = fmt.Fprintln(out, i18n.T("remove.aborted"))
					return nil
				}
			}

			if err := a.store.DeleteEntry(ctx, id); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, i18n.T("remove.removed", id))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// confirmed reads one answer line. English and German affirmatives are accepted.
func confirmed(r io.Reader) bool {
	input, _ := bufio.NewReader(r).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes", "j", "ja":
		return true
	}
	return false
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Import fingerprints from a text file",
		Long: `Imports one fingerprint per line, optionally followed by a keyspec:

  <sha256-hex> [keyspec]

Blank lines and lines starting with '#' are ignored. The file is validated as
a whole before anything is stored; entries already present are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader
			if args[0] == "-" {
				r = cmd.InOrStdin()
			} else {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				r = f
			}

			entries, err := parseImport(r)
			if err != nil {
				return err
			}
			added, skipped, err := a.store.ImportEntries(cmd.Context(), entries)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("import.summary", added, skipped))
			return nil
		},
	}
}

// parseImport reads "<fingerprint> [keyspec]" lines. All malformed lines are
// reported together.
func parseImport(r io.Reader) ([]model.BlacklistEntry, error) {
	var (
		entries []model.BlacklistEntry
		errs    []error
	)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		fp, err := fingerprint.Normalize(fields[0])
		if err != nil {
			errs = append(errs, errors.New(i18n.T("import.invalid_line", lineNo, err)))
			continue
		}
		entries = append(entries, model.BlacklistEntry{
			Type:  model.KindPublicKey,
			Value: fp,
			Data:  strings.Join(fields[1:], " "),
		})
	}
	if err := sc.Err(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return entries, nil
}
