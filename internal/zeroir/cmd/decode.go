package cmd

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"zeroir/internal/disasm"
	"zeroir/internal/ui/colorize"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Print canonical instructions of the executable sections",
	Long: `Decode sweeps every executable section linearly and prints each
instruction's canonical mnemonic and operands. Forms outside the
canonical grammar print as "unsupported".`,
	Example: `
# Plain rendering
zeroir decode /bin/true

# Tab separated, with the decoder's own listing as a comment
zeroir decode --tabs --intel /bin/true
  `,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		m, err := env.build(args[0])
		if err != nil {
			return err
		}
		stream, err := disasm.SweepModel(cmd.Context(), m, env.cfg.Mode, env.cfg.Workers)
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}

		tabs, _ := cmd.Flags().GetBool("tabs")
		intel, _ := cmd.Flags().GetBool("intel")
		return writeListing(cmd.OutOrStdout(), stream, tabs, intel, env.color)
	},
}

func writeListing(w io.Writer, stream disasm.Stream, tabs, intel, color bool) error {
	bw := bufio.NewWriter(w)
	for _, in := range stream {
		c := in.Canonical()
		text := c.Result()
		if tabs {
			text = c.ResultTabs()
		}
		if intel {
			text += " ; " + in.Text
		}
		addr := fmt.Sprintf("%x", in.VA)
		if color {
			fmt.Fprintln(bw, colorize.Line(addr, text))
		} else {
			fmt.Fprintf(bw, "%s  %s\n", addr, text)
		}
	}
	return bw.Flush()
}

func init() {
	decodeCmd.Flags().BoolP("tabs", "t", false, "Separate mnemonic and operands with tabs")
	decodeCmd.Flags().Bool("intel", false, "Append the decoder's Intel syntax listing")
	rootCmd.AddCommand(decodeCmd)
}
