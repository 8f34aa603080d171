package apfsro

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coreapfs/apfsro/internal/vfsfuse"
)

var mountCmd = &cobra.Command{
	Use:   "mount <device> <mountpoint>",
	Short: "Mount the volume read-only at mountpoint via FUSE",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openMount(args[0])
		if err != nil {
			return err
		}
		defer h.Unmount()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return vfsfuse.Serve(ctx, args[1], h, log.WithField("device", args[0]))
	},
}

func init() {
	rootCmd.AddCommand(mountCmd)
}
