package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mdthewzrd/chartscan/internal/detect"
)

// patternsCmd represents the patterns command
var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List available pattern IDs",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, id := range detect.NewRegistry().IDs() {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(patternsCmd)
}
