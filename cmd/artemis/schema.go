package main

import (
	"github.com/mahmed0x1/ARTEMIS/internal/domain"
	"github.com/mahmed0x1/ARTEMIS/internal/infra/registry/evm"

	"github.com/spf13/cobra"
)

type schemaReport struct {
	ABIPath   string                     `json:"abi_path,omitempty"`
	Valid     bool                       `json:"valid"`
	Error     string                     `json:"error,omitempty"`
	Functions []domain.FunctionSignature `json:"functions"`
}

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Check a registry ABI against the functions the oracle calls",
		Long: `Validates the ABI at --abi (or REGISTRY_ABI_PATH, or the built-in ABI
when neither is set). Accepts a bare ABI array or a compiler artifact with an
"abi" field. No node connection is made.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("abi")
			if path == "" {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				path = cfg.RegistryABIPath
			}
			parsed, err := evm.LoadABI(path)
			if err != nil {
				return err
			}
			report := schemaReport{ABIPath: path, Functions: evm.SchemaFromABI(parsed)}
			verr := domain.ValidateSchema(report.Functions)
			report.Valid = verr == nil
			if verr != nil {
				report.Error = verr.Error()
			}
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			return verr
		},
	}
	cmd.Flags().String("abi", "", "path to the registry ABI or compiler artifact")
	return cmd
}
