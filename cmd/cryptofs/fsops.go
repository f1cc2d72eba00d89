package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cuemby/cryptofs/pkg/fs"
	"github.com/cuemby/cryptofs/pkg/metrics"
	"github.com/cuemby/cryptofs/pkg/txn"
	"github.com/spf13/cobra"
)

var writeCmd = &cobra.Command{
	Use:   "write <path>",
	Short: "Write stdin (or --from) to a file in the repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepoFromFlags(cmd)
		if err != nil {
			return err
		}
		defer r.Close()

		from, _ := cmd.Flags().GetString("from")
		append_, _ := cmd.Flags().GetBool("append")

		var data []byte
		if from != "" {
			data, err = os.ReadFile(from)
		} else {
			data, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return err
		}

		timer := metrics.NewTimer()
		err = r.WithTxn(func(tx *txn.Txn, ov *fs.Overlay) error {
			f, err := ov.OpenFile(tx, args[0], fs.OpenOptions{
				Write:    true,
				Create:   true,
				Truncate: !append_,
				Append:   append_,
			})
			if err != nil {
				return err
			}
			f.Write(data)
			_, err = f.Finish(tx)
			return err
		})
		timer.ObserveDurationVec(metrics.FSOpDuration, "write")
		metrics.FSOpsTotal.WithLabelValues("write", resultLabel(err)).Inc()
		return err
	},
}

var readCmd = &cobra.Command{
	Use:   "read <path>",
	Short: "Print a file's latest version to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepoFromFlags(cmd)
		if err != nil {
			return err
		}
		defer r.Close()

		var data []byte
		err = r.WithTxn(func(tx *txn.Txn, ov *fs.Overlay) error {
			f, err := ov.OpenFile(tx, args[0], fs.OpenOptions{})
			if err != nil {
				return err
			}
			data, err = f.Read()
			return err
		})
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls <path>",
	Short: "List a directory's entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepoFromFlags(cmd)
		if err != nil {
			return err
		}
		defer r.Close()

		entries, err := r.FS().ReadDir(args[0])
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Println(e.Name)
		}
		return nil
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a directory, and any missing parents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepoFromFlags(cmd)
		if err != nil {
			return err
		}
		defer r.Close()

		return r.WithTxn(func(tx *txn.Txn, ov *fs.Overlay) error {
			return ov.CreateDirAll(tx, args[0])
		})
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Remove a file or directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepoFromFlags(cmd)
		if err != nil {
			return err
		}
		defer r.Close()

		recursive, _ := cmd.Flags().GetBool("recursive")
		return r.WithTxn(func(tx *txn.Txn, ov *fs.Overlay) error {
			if recursive {
				return ov.RemoveDirAll(tx, args[0])
			}
			if err := ov.RemoveFile(tx, args[0]); err != nil {
				return ov.RemoveDir(tx, args[0])
			}
			return nil
		})
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv <from> <to>",
	Short: "Rename or move a file or directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepoFromFlags(cmd)
		if err != nil {
			return err
		}
		defer r.Close()

		return r.WithTxn(func(tx *txn.Txn, ov *fs.Overlay) error {
			return ov.Rename(tx, args[0], args[1])
		})
	},
}

var cpCmd = &cobra.Command{
	Use:   "cp <from> <to>",
	Short: "Copy a file, deduplicating shared chunks",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepoFromFlags(cmd)
		if err != nil {
			return err
		}
		defer r.Close()

		return r.WithTxn(func(tx *txn.Txn, ov *fs.Overlay) error {
			return ov.Copy(tx, args[0], args[1])
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <path>",
	Short: "List a file's retained versions, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepoFromFlags(cmd)
		if err != nil {
			return err
		}
		defer r.Close()

		versions, err := r.FS().History(args[0])
		if err != nil {
			return err
		}
		for _, v := range versions {
			fmt.Printf("v%d\tlen=%d\tchunks=%d\tctime=%s\n", v.Num, v.Len, len(v.Segments), v.Ctime)
		}
		return nil
	},
}

func init() {
	writeCmd.Flags().String("from", "", "Read content from this local file instead of stdin")
	writeCmd.Flags().Bool("append", false, "Append to the file instead of overwriting it")
	rmCmd.Flags().BoolP("recursive", "r", false, "Remove a directory and everything under it")
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
