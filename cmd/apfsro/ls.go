package apfsro

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coreapfs/apfsro/internal/fstree"
)

var lsCmd = &cobra.Command{
	Use:   "ls <device> [path]",
	Short: "List a directory's entries",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/"
		if len(args) == 2 {
			path = args[1]
		}
		h, err := openMount(args[0])
		if err != nil {
			return err
		}
		defer h.Unmount()

		dirIno, err := resolvePath(h, path)
		if err != nil {
			return err
		}

		var cursor uint64
		for {
			entries, next, err := h.Iterate(dirIno, cursor, 256)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				break
			}
			for _, e := range entries {
				kind := "-"
				if e.Kind == fstree.KindDirectory {
					kind = "d"
				}
				fmt.Printf("%s %10d  %s\n", kind, e.ChildIno, fstree.DecodeDisplayName(e.Name))
			}
			if next == cursor {
				break
			}
			cursor = next
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
