package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"oszifox-viewer/internal/config"
	"oszifox-viewer/internal/serialport"
	"oszifox-viewer/internal/version"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List the serial ports present on this system",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := serialport.List()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var forceInit bool

var configInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write the default configuration as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := "config.yaml"
		if len(args) == 1 {
			filename = args[0]
		}
		if _, err := os.Stat(filename); err == nil && !forceInit {
			return fmt.Errorf("%s already exists (use --force to overwrite)", filename)
		}
		if err := config.DefaultConfig().WriteFile(filename); err != nil {
			return err
		}
		fmt.Printf("Wrote default configuration to %s\n", filename)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersionInfo("oszifox"))
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}
