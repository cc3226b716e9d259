package main

import (
	"github.com/mahmed0x1/ARTEMIS/internal/app"
	"github.com/mahmed0x1/ARTEMIS/internal/infra/contenthash"
	"github.com/mahmed0x1/ARTEMIS/internal/usecase"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <hash|cid>",
		Short: "Resolve the license status of one content hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := contenthash.Parse(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app.App) error {
				status, err := a.Oracle.ResolveHash(cmd.Context(), hash)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), status)
			})
		},
	}
}

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [hash...]",
		Short: "Resolve many content hashes at once",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			inputs, err := readHashList(cmd, args, file)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app.App) error {
				statuses, err := a.Oracle.ResolveMany(cmd.Context(), usecase.HexInputs(inputs))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), statuses)
			})
		},
	}
	cmd.Flags().StringP("file", "f", "", "file with one hash per line (- for stdin)")
	return cmd
}

func newEvaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate [hash...]",
		Short: "Decide which content may be used for a purpose",
		RunE: func(cmd *cobra.Command, args []string) error {
			purpose, _ := cmd.Flags().GetString("purpose")
			file, _ := cmd.Flags().GetString("file")
			inputs, err := readHashList(cmd, args, file)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app.App) error {
				report, err := a.Evaluator.Evaluate(cmd.Context(), purpose, inputs)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().String("purpose", "training", "intended use of the content")
	cmd.Flags().StringP("file", "f", "", "file with one hash per line (- for stdin)")
	return cmd
}
