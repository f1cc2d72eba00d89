package main

import (
	"fmt"

	"github.com/cuemby/cryptofs/pkg/crypto"
	"github.com/cuemby/cryptofs/pkg/repo"
	"github.com/spf13/cobra"
)

// openRepoFromFlags builds the repo.Options a command's persistent flags
// describe and opens it.
func openRepoFromFlags(cmd *cobra.Command) (*repo.Repo, error) {
	uri, _ := cmd.Flags().GetString("repo")
	password, _ := cmd.Flags().GetString("password")
	create, _ := cmd.Flags().GetBool("create")
	createNew, _ := cmd.Flags().GetBool("create-new")
	readOnly, _ := cmd.Flags().GetBool("read-only")
	cipherName, _ := cmd.Flags().GetString("cipher")
	versionLimit, _ := cmd.Flags().GetUint8("version-limit")

	var opts []repo.Option
	if createNew {
		opts = append(opts, repo.CreateNew())
	} else if create {
		opts = append(opts, repo.Create())
	}
	if readOnly {
		opts = append(opts, repo.ReadOnly())
	}

	cipher, err := parseCipher(cipherName)
	if err != nil {
		return nil, err
	}
	opts = append(opts, repo.WithCipher(cipher), repo.WithVersionLimit(versionLimit))

	return repo.Open(uri, password, opts...)
}

func parseCipher(name string) (crypto.Cipher, error) {
	switch name {
	case "xchacha", "":
		return crypto.Xchacha, nil
	case "aes":
		return crypto.Aes, nil
	default:
		return 0, fmt.Errorf("unknown cipher %q (want xchacha or aes)", name)
	}
}
