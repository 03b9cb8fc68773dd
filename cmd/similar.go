package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var similarCmd = &cobra.Command{
	Use:   "similar <code>",
	Short: "Resolve similar listings for one catalog code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "similar")
		if err != nil {
			return err
		}
		defer env.Close()

		env.Catalog.EnsureLoaded(ctx)
		target, ok := env.Catalog.Get(args[0])
		if !ok {
			return eris.Errorf("listing %s not found in catalog", args[0])
		}

		matches := env.Resolver.Resolve(ctx, target)
		zap.L().Info("similar listings resolved",
			zap.String("code", target.Code),
			zap.Int("matches", len(matches)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(matches)
	},
}

func init() {
	rootCmd.AddCommand(similarCmd)
}
