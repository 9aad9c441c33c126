// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"
	"github.com/toeirei/keymaster-blacklist/internal/i18n"
	"github.com/toeirei/keymaster-blacklist/internal/model"
)

// backupSchemaVersion is bumped when BackupData changes incompatibly.
const backupSchemaVersion = 1

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export [output-file]",
		Short: "Write a compressed (zstd) JSON snapshot of the blacklist",
		Long: `Dumps all blacklist entries into a single, Zstandard-compressed JSON file.

If an output file is specified, '.zst' will be appended to the name if it's not already present.
If no output file is specified, a default filename 'keyblacklist-YYYY-MM-DD.json.zst' is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var outputFile string
			if len(args) == 0 {
				outputFile = fmt.Sprintf("keyblacklist-%s.json.zst", time.Now().Format("2006-01-02"))
			} else {
				outputFile = args[0]
				if !strings.HasSuffix(outputFile, ".zst") {
					outputFile += ".zst"
				}
			}

			entries, err := a.store.ListEntries(cmd.Context(), "")
			if err != nil {
				return err
			}
			data := &model.BackupData{SchemaVersion: backupSchemaVersion, Entries: entries}

			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("could not create file: %w", err)
			}
			if err := writeCompressedBackup(f, data); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			_ = a.store.LogAction(cmd.Context(), "EXPORT_BLACKLIST", fmt.Sprintf("file: %s, entries: %d", outputFile, len(entries)))
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("export.done", len(entries), outputFile))
			return nil
		},
	}
}

func newRestoreCmd(a *app) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "restore <backup-file.zst>",
		Short: "Restore the blacklist from a compressed JSON snapshot",
		Long: `Restores entries from a file written by 'export'.
By default, this command performs a non-destructive "integration" restore, only adding
entries that do not already exist.

To perform a full, destructive restore that WIPES all existing entries first and keeps
the ids from the snapshot, use the --full flag.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("could not open file: %w", err)
			}
			defer func() { _ = f.Close() }()

			data, err := readCompressedBackup(f)
			if err != nil {
				return err
			}
			if data.SchemaVersion > backupSchemaVersion {
				return fmt.Errorf("backup schema version %d is newer than supported version %d", data.SchemaVersion, backupSchemaVersion)
			}

			if full {
				if err := a.store.ReplaceEntries(cmd.Context(), data.Entries); err != nil {
					return err
				}
			} else if _, _, err := a.store.ImportEntries(cmd.Context(), data.Entries); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("restore.done", len(data.Entries), args[0]))
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Perform a full, destructive restore (wipes all existing entries first)")
	return cmd
}

// writeCompressedBackup streams the JSON encoding of data through a zstd encoder.
func writeCompressedBackup(w io.Writer, data *model.BackupData) error {
	zstdWriter, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("could not create zstd writer: %w", err)
	}

	encoder := json.NewEncoder(zstdWriter)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		_ = zstdWriter.Close()
		return fmt.Errorf("could not encode json to zstd writer: %w", err)
	}
	return zstdWriter.Close()
}

// readCompressedBackup decodes a zstd-compressed JSON backup.
func readCompressedBackup(r io.Reader) (*model.BackupData, error) {
	zstdReader, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zstdReader.Close()

	var backupData model.BackupData
	if err := json.NewDecoder(zstdReader).Decode(&backupData); err != nil {
		return nil, fmt.Errorf("could not decode json from zstd reader: %w", err)
	}
	return &backupData, nil
}
