// Package apfsro is the command-line front end for mounting, inspecting,
// and extracting read-only Apple File System containers. Subcommands drive
// the core package (internal/mount) against a device or image path; none of
// them write to the underlying storage.
package apfsro

import (
	"fmt"
	"os"

	homedir "os/user"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	verbose    bool
	cacheMB    int
	useDMG     bool
	log        = logrus.New()
	cfgFile    string
)

var rootCmd = &cobra.Command{
	Use:   "apfsro",
	Short: "Read-only Apple File System explorer and mount tool",
	Long: `apfsro opens an APFS container from a raw device, flat image, or
.dmg file and exposes it read-only: print superblock info, list and
extract files, check structural soundness, or mount it through the host
kernel's own VFS via FUSE.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	},
}

// Execute runs the root command, exiting non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "apfsro: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().IntVar(&cacheMB, "cache-mb", 0, "LRU block cache size in megabytes (0 disables caching)")
	rootCmd.PersistentFlags().BoolVar(&useDMG, "dmg", false, "treat the device path as an Apple Disk Image rather than a raw device/flat image")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.apfsro.yaml)")

	viper.BindPFlag("cache_mb", rootCmd.PersistentFlags().Lookup("cache-mb"))
}

// initConfig loads defaults from ~/.apfsro.yaml. Absence of the file is not
// an error; every setting it might supply has a flag-level default already.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if u, err := homedir.Current(); err == nil {
		viper.AddConfigPath(u.HomeDir)
		viper.SetConfigName(".apfsro")
	}
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.WithField("file", viper.ConfigFileUsed()).Debug("loaded config file")
	}

	if !rootCmd.PersistentFlags().Changed("cache-mb") {
		if v := viper.GetInt("cache_mb"); v > 0 {
			cacheMB = v
		}
	}
}
