package main

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skyline93/rscache/internal/codec"
	"github.com/skyline93/rscache/internal/errors"
)

var cmdRead = &cobra.Command{
	Use:   "read [flags] index archive",
	Short: "Print the contents of an archive",
	Long: `
The "read" command writes the decoded payload of an archive to stdout or to a
file. With --raw the container is written exactly as stored.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	Args:              cobra.ExactArgs(2),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRead(readOptions, globalOptions, args, os.Stdout)
	},
}

// ReadOptions bundles all options for the read command.
type ReadOptions struct {
	Raw    bool
	Output string
	XTEA   string
	Entry  int
}

var readOptions ReadOptions

func init() {
	cmdRoot.AddCommand(cmdRead)

	f := cmdRead.Flags()
	f.BoolVar(&readOptions.Raw, "raw", false, "write the container as stored")
	f.StringVarP(&readOptions.Output, "out", "o", "", "write to `file` instead of stdout")
	f.StringVar(&readOptions.XTEA, "xtea", "", "decrypt with the XTEA `keys` k1,k2,k3,k4")
	f.IntVar(&readOptions.Entry, "entry", -1, "only write file `n` of a grouped archive")
}

func parseKeys(s string) (codec.Keys, error) {
	var keys codec.Keys
	if s == "" {
		return keys, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != len(keys) {
		return keys, errors.Fatalf("expected %d XTEA keys, got %d", len(keys), len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 0, 64)
		if err != nil || v < -1<<31 || v > 1<<32-1 {
			return keys, errors.Fatalf("invalid XTEA key %q", p)
		}
		keys[i] = uint32(v)
	}
	return keys, nil
}

func runRead(opts ReadOptions, gopts GlobalOptions, args []string, stdout io.Writer) error {
	id, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	archive, err := parseArchive(args[1])
	if err != nil {
		return err
	}
	keys, err := parseKeys(opts.XTEA)
	if err != nil {
		return err
	}

	repo, err := openRepository(gopts)
	if err != nil {
		return err
	}
	defer repo.Close()

	var buf []byte
	switch {
	case opts.Raw:
		buf, err = repo.ReadRaw(id, archive)
	case opts.Entry >= 0:
		var files [][]byte
		files, err = repo.ReadGroup(id, archive, keys)
		if err == nil && opts.Entry >= len(files) {
			return errors.Fatalf("archive %d/%d has %d files", id, archive, len(files))
		}
		if err == nil {
			buf = files[opts.Entry]
		}
	default:
		buf, err = repo.ReadWithKeys(id, archive, keys)
	}
	if err != nil {
		return err
	}

	if opts.Output == "" {
		_, err = stdout.Write(buf)
		return errors.Wrap(err, "Write")
	}
	return errors.Wrap(os.WriteFile(opts.Output, buf, 0644), "WriteFile")
}
