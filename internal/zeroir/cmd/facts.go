package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"zeroir/internal/disasm"
	"zeroir/internal/facts"
	"zeroir/internal/x64"
)

var factsCmd = &cobra.Command{
	Use:   "facts [file]",
	Short: "Write instruction and operand relations",
	Long: `Facts sweeps the executable sections and writes the canonical
instructions and the operator table as tab-separated .facts files.`,
	Example: `
zeroir facts -o out/ /bin/true
  `,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		dir, _ := cmd.Flags().GetString("output")
		if !cmd.Flags().Changed("output") && env.cfg.FactsDir != "" {
			dir = env.cfg.FactsDir
		}

		m, err := env.build(args[0])
		if err != nil {
			return err
		}
		stream, err := disasm.SweepModel(cmd.Context(), m, env.cfg.Mode, env.cfg.Workers)
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}

		insts := stream.Canonical()
		table := x64.NewOperatorTable()
		if err := facts.Write(dir, insts, table); err != nil {
			return err
		}

		unsupported := 0
		for _, in := range insts {
			if !in.Supported() {
				unsupported++
			}
		}
		env.logger.Info("Wrote facts",
			"dir", dir,
			"instructions", len(insts),
			"unsupported", unsupported,
			"operands", table.Len())
		return nil
	},
}

func init() {
	factsCmd.Flags().StringP("output", "o", "facts", "Output directory")
	rootCmd.AddCommand(factsCmd)
}
