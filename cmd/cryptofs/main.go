package main

import (
	"fmt"
	"os"

	"github.com/cuemby/cryptofs/pkg/logx"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cryptofs",
	Short: "cryptofs - an encrypted, versioned, content-addressed file store",
	Long: `cryptofs opens a repository (mem://, file://, redis://, or zbox://)
and runs a single filesystem operation against it: write, read, list,
rename, copy, remove, or inspect a file's version history.

This CLI is an example program, not the library's primary surface; most
programs will import pkg/repo directly.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"cryptofs version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	rootCmd.PersistentFlags().String("repo", "", "Repository URI (mem://, file://, redis://, zbox://)")
	rootCmd.PersistentFlags().String("password", "", "Repository password")
	_ = rootCmd.MarkPersistentFlagRequired("repo")

	rootCmd.PersistentFlags().Bool("create", false, "Create the repository if it doesn't exist")
	rootCmd.PersistentFlags().Bool("create-new", false, "Create a brand new repository, failing if one exists")
	rootCmd.PersistentFlags().Bool("read-only", false, "Open the repository read-only")
	rootCmd.PersistentFlags().String("cipher", "xchacha", "Cipher for a new repository (xchacha, aes)")
	rootCmd.PersistentFlags().Uint8("version-limit", 16, "Per-file version ring depth for a new repository")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(mvCmd)
	rootCmd.AddCommand(cpCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(serveCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	logx.Init(logx.Config{
		Level:      logx.Level(logLevel),
		JSONOutput: logJSON,
	})
}
