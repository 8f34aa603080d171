package apfsro

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coreapfs/apfsro/internal/mount"
)

var infoCmd = &cobra.Command{
	Use:   "info <device>",
	Short: "Print the mounted volume's superblock summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openMount(args[0])
		if err != nil {
			return err
		}
		defer h.Unmount()

		info, err := h.Stat(mount.RootInode)
		if err != nil {
			return err
		}

		fmt.Printf("volume name:   %s\n", h.VolumeName())
		fmt.Printf("block size:    %d\n", h.BlockSize())
		fmt.Printf("root inode:    %d\n", mount.RootInode)
		fmt.Printf("root children: %d\n", info.NumChildren)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
