package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mahmed0x1/ARTEMIS/internal/app"
	"github.com/mahmed0x1/ARTEMIS/internal/config"
	"github.com/mahmed0x1/ARTEMIS/internal/infra/logging"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "artemis",
		Short: "Query and manage image licenses on the ARTEMIS registry",
		Long: strings.TrimSpace(`
Resolve, register and revoke image licenses recorded in the on-chain
registry. Registry and storage settings come from the same environment
variables as oracled (REGISTRY_BACKEND, REGISTRY_RPC_URL, REGISTRY_ADDRESS, ...).
Every command prints JSON on stdout.`),
		SilenceUsage: true,
	}
	root.PersistentFlags().String("log-level", "", "override LOG_LEVEL")

	root.AddCommand(
		newHashCmd(),
		newStatusCmd(),
		newBatchCmd(),
		newRegisterCmd(),
		newRevokeCmd(),
		newRegisterBatchCmd(),
		newEvaluateCmd(),
		newSchemaCmd(),
	)
	return root
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return config.Config{}, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}

// withApp builds the oracle for one command and closes it afterwards. Logs
// go to stderr in text form so stdout stays machine readable.
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, "text")
	if err != nil {
		return err
	}
	a, err := app.Build(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readHashList returns args followed by the non-empty, non-comment lines of
// file. A file of "-" reads stdin.
func readHashList(cmd *cobra.Command, args []string, file string) ([]string, error) {
	hashes := append([]string(nil), args...)
	if file == "" {
		return hashes, nil
	}
	var r io.Reader
	if file == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		hashes = append(hashes, line)
	}
	return hashes, nil
}
