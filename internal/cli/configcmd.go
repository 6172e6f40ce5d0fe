package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sseqchart/internal/config"
)

func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FindConfigPath()
			if c.configPath != "" {
				path = c.configPath
			}
			if path == "" {
				path = "(defaults)"
			}
			printKeyValue("File", path)
			printKeyValue("Gradings", fmt.Sprint(c.Config.Chart.NumGradings))
			printKeyValue("Offset size", fmt.Sprint(c.Config.Chart.OffsetSize))
			printKeyValue("Server", c.Config.Server.Addr)
			printKeyValue("Cache", cacheLabel(c.Config.Cache))
			printKeyValue("Cache TTL", c.Config.Cache.TTL.Std().String())
			printKeyValue("Store", storeLabel(c.Config.Store))
			printKeyValue("Log level", c.Config.Log.Level)
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with the default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigPath()
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s exists (use --force to overwrite)", path)
			}
			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			printSuccess("Wrote default config")
			printFile(path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)

	return cmd
}

func cacheLabel(cc config.CacheConfig) string {
	if cc.RedisAddr != "" {
		return "redis://" + cc.RedisAddr
	}
	if cc.Dir != "" {
		return cc.Dir
	}
	return "file (default dir)"
}

func storeLabel(sc config.StoreConfig) string {
	if sc.MongoURI != "" {
		return sc.MongoURI
	}
	if sc.Dir != "" {
		return sc.Dir
	}
	return "file (default dir)"
}
