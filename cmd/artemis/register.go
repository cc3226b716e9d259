package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mahmed0x1/ARTEMIS/internal/app"
	"github.com/mahmed0x1/ARTEMIS/internal/domain"
	"github.com/mahmed0x1/ARTEMIS/internal/infra/contenthash"
	"github.com/mahmed0x1/ARTEMIS/internal/usecase"

	"github.com/spf13/cobra"
)

func newRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <hash|cid> <license>",
		Short: "Register a license for a content hash",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := contenthash.Parse(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app.App) error {
				receipt, err := a.Registrar.Register(cmd.Context(), usecase.RegisterCommand{Hash: hash, LicenseID: args[1]})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), receipt)
			})
		},
	}
}

func newRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <hash|cid>",
		Short: "Revoke the license of a content hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := contenthash.Parse(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app.App) error {
				receipt, err := a.Registrar.Revoke(cmd.Context(), hash)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), receipt)
			})
		},
	}
}

// manifestRow is one line of a registration manifest.
type manifestRow struct {
	Line      int
	Input     string
	Hash      domain.ContentHash
	LicenseID string
	Err       error
}

type registerResult struct {
	Line      int               `json:"line"`
	Input     string            `json:"content_hash"`
	LicenseID string            `json:"license"`
	Receipt   *domain.TxReceipt `json:"receipt,omitempty"`
	Error     string            `json:"error,omitempty"`
}

type registerSummary struct {
	Registered int              `json:"registered"`
	Failed     int              `json:"failed"`
	Results    []registerResult `json:"results"`
}

// parseManifest reads content_hash,license_id rows. A header row naming
// those columns is skipped. Rows that fail to parse keep their error so the
// run can report them alongside submitted rows.
func parseManifest(r io.Reader) ([]manifestRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var rows []manifestRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		if len(rows) == 0 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "content_hash") {
			continue
		}
		row := manifestRow{Line: line}
		if len(record) != 2 {
			row.Err = fmt.Errorf("expected 2 columns, got %d", len(record))
			if len(record) > 0 {
				row.Input = record[0]
			}
			rows = append(rows, row)
			continue
		}
		row.Input = strings.TrimSpace(record[0])
		row.LicenseID = strings.TrimSpace(record[1])
		row.Hash, row.Err = contenthash.Parse(row.Input)
		rows = append(rows, row)
	}
	return rows, nil
}

// registerManifest submits rows one at a time. Failed rows are reported and
// do not stop the run.
func registerManifest(cmd *cobra.Command, registrar *usecase.Registrar, rows []manifestRow) registerSummary {
	summary := registerSummary{Results: make([]registerResult, 0, len(rows))}
	for _, row := range rows {
		result := registerResult{Line: row.Line, Input: row.Input, LicenseID: row.LicenseID}
		err := row.Err
		if err == nil {
			var receipt domain.TxReceipt
			receipt, err = registrar.Register(cmd.Context(), usecase.RegisterCommand{Hash: row.Hash, LicenseID: row.LicenseID})
			if err == nil {
				result.Input = row.Hash.Hex()
				result.Receipt = &receipt
			}
		}
		if err != nil {
			result.Error = err.Error()
			summary.Failed++
		} else {
			summary.Registered++
		}
		summary.Results = append(summary.Results, result)
		if cmd.Context().Err() != nil {
			break
		}
	}
	return summary
}

func newRegisterBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register-batch <manifest.csv>",
		Short: "Register every content_hash,license_id row of a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			rows, err := parseManifest(f)
			if err != nil {
				return fmt.Errorf("parse manifest %s: %w", args[0], err)
			}
			return withApp(cmd, func(a *app.App) error {
				summary := registerManifest(cmd, a.Registrar, rows)
				if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
					return err
				}
				if summary.Failed > 0 {
					return fmt.Errorf("%d of %d rows failed", summary.Failed, len(rows))
				}
				return nil
			})
		},
	}
}
