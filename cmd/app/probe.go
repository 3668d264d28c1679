package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/local/pagepress/internal/codec"
)

var probeCmd = &cobra.Command{
	Use:   "probe <document.pdf>",
	Short: "Print page count and byte size of a PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := codec.Probe(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d pages, %s\n", args[0], info.Pages, humanBytes(float64(info.Bytes)))
		return nil
	},
}

func init() { rootCmd.AddCommand(probeCmd) }
