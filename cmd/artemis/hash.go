package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/mahmed0x1/ARTEMIS/internal/infra/contenthash"

	"github.com/spf13/cobra"
)

func newHashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash <file|dir>...",
		Short: "Compute content hashes and CIDs of image files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := cmd.Flags().GetInt("jobs")
			if err != nil {
				return err
			}
			var out []contenthash.FileHash
			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil {
					return err
				}
				if info.IsDir() {
					hashes, err := contenthash.HashDir(cmd.Context(), path, jobs)
					if err != nil {
						return fmt.Errorf("hash %s: %w", path, err)
					}
					out = append(out, hashes...)
					continue
				}
				hash, err := contenthash.HashFile(path)
				if err != nil {
					return err
				}
				out = append(out, contenthash.FileHash{Path: path, Hash: hash, CID: contenthash.CID(hash)})
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntP("jobs", "j", runtime.NumCPU(), "concurrent file readers for directories")
	return cmd
}
