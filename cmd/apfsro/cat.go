package apfsro

import (
	"os"

	"github.com/spf13/cobra"
)

const catChunkSize = 1 << 20

var catCmd = &cobra.Command{
	Use:   "cat <device> <path>",
	Short: "Write a file's contents to stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openMount(args[0])
		if err != nil {
			return err
		}
		defer h.Unmount()

		ino, err := resolvePath(h, args[1])
		if err != nil {
			return err
		}

		var off uint64
		for {
			chunk, err := h.Read(ino, off, catChunkSize)
			if err != nil {
				return err
			}
			if len(chunk) == 0 {
				return nil
			}
			if _, err := os.Stdout.Write(chunk); err != nil {
				return err
			}
			off += uint64(len(chunk))
		}
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}
