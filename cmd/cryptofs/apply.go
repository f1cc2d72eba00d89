package main

import (
	"fmt"
	"os"

	"github.com/cuemby/cryptofs/pkg/fs"
	"github.com/cuemby/cryptofs/pkg/txn"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a manifest of files and directories to the repository",
	Long: `apply reads a YAML manifest describing a tree of files and
directories and stages every entry it names in one transaction.

Example manifest:

  files:
    - path: /etc/motd
      content: "welcome"
    - path: /etc/hostname
      from: ./hostname.txt
  directories:
    - /var/log`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML manifest to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")
}

// Manifest is a generic apply resource: a set of files and directories
// to stage against the repository in one transaction.
type Manifest struct {
	Files       []ManifestFile `yaml:"files"`
	Directories []string       `yaml:"directories"`
}

// ManifestFile names a file by path and its content, either inline or
// read from a local path (a relative path is resolved against the
// working directory, not the manifest's location).
type ManifestFile struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
	From    string `yaml:"from"`
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("failed to parse manifest: %w", err)
	}

	r, err := openRepoFromFlags(cmd)
	if err != nil {
		return err
	}
	defer r.Close()

	return r.WithTxn(func(tx *txn.Txn, ov *fs.Overlay) error {
		for _, dir := range manifest.Directories {
			if err := ov.CreateDirAll(tx, dir); err != nil {
				return fmt.Errorf("directory %s: %w", dir, err)
			}
		}
		for _, mf := range manifest.Files {
			content := []byte(mf.Content)
			if mf.From != "" {
				b, err := os.ReadFile(mf.From)
				if err != nil {
					return fmt.Errorf("file %s: %w", mf.Path, err)
				}
				content = b
			}
			f, err := ov.OpenFile(tx, mf.Path, fs.OpenOptions{Write: true, Create: true, Truncate: true})
			if err != nil {
				return fmt.Errorf("file %s: %w", mf.Path, err)
			}
			f.Write(content)
			if _, err := f.Finish(tx); err != nil {
				return fmt.Errorf("file %s: %w", mf.Path, err)
			}
		}
		return nil
	})
}
