package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the dmlplan version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), getVersion())
	},
}

func getVersion() string {
	version := "dev"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		version = v
	}

	var commit, buildTime string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			commit = setting.Value
			if len(commit) > 7 {
				commit = commit[:7]
			}
		case "vcs.modified":
			modified = setting.Value == "true"
		case "vcs.time":
			buildTime = setting.Value
		}
	}

	if commit != "" {
		version += " (" + commit
		if modified {
			version += " modified"
		}
		version += ")"
	}
	if buildTime != "" {
		version += " built " + buildTime
	}
	return version
}
