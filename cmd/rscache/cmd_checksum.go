package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/skyline93/rscache/internal/crypto"
	"github.com/skyline93/rscache/internal/errors"
)

var cmdChecksum = &cobra.Command{
	Use:   "checksum [flags]",
	Short: "Print the checksum table of the store",
	Long: `
The "checksum" command prints the crc and revision of the reference table of
every index, and the encoded checksum table a server sends to clients.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	Args:              cobra.NoArgs,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChecksum(checksumOptions, globalOptions, os.Stdout)
	},
}

// ChecksumOptions bundles all options for the checksum command.
type ChecksumOptions struct {
	RS3      bool
	Exponent string
	Modulus  string
}

var checksumOptions ChecksumOptions

func init() {
	cmdRoot.AddCommand(cmdChecksum)

	f := cmdChecksum.Flags()
	f.BoolVar(&checksumOptions.RS3, "rs3", false, "encode the signed table with whirlpool digests")
	f.StringVar(&checksumOptions.Exponent, "exponent", "", "private RSA exponent, decimal")
	f.StringVar(&checksumOptions.Modulus, "modulus", "", "RSA modulus, decimal")
}

func runChecksum(opts ChecksumOptions, gopts GlobalOptions, out io.Writer) error {
	var key crypto.RSAKey
	if opts.RS3 {
		if opts.Exponent == "" || opts.Modulus == "" {
			return errors.Fatal("--rs3 needs --exponent and --modulus")
		}
		var err error
		key, err = crypto.ParseRSAKey(opts.Exponent, opts.Modulus)
		if err != nil {
			return errors.Fatalf("%v", err)
		}
	}

	repo, err := openRepository(gopts)
	if err != nil {
		return err
	}
	defer repo.Close()

	table, err := repo.ChecksumTable()
	if err != nil {
		return err
	}

	for id, e := range table.Entries {
		fmt.Fprintf(out, "%3d  crc %08x  revision %d\n", id, e.CRC, e.Revision)
	}

	var buf []byte
	if opts.RS3 {
		buf, err = table.EncodeRS3(key)
	} else {
		buf, err = table.EncodeOSRS()
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, hex.EncodeToString(buf))
	return nil
}
