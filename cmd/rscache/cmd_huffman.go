package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/skyline93/rscache/internal/errors"
)

var cmdHuffman = &cobra.Command{
	Use:   "huffman",
	Short: "Compress or decompress chat messages",
	Long: `
The "huffman" command uses the chat compression table stored in the binary
index of the store.
`,
	DisableAutoGenTag: true,
}

var cmdHuffmanDecode = &cobra.Command{
	Use:               "decode hex length",
	Short:             "Decompress a message of length characters",
	Args:              cobra.ExactArgs(2),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHuffmanDecode(globalOptions, args, os.Stdout)
	},
}

var cmdHuffmanEncode = &cobra.Command{
	Use:               "encode text",
	Short:             "Compress a message",
	Args:              cobra.ExactArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHuffmanEncode(globalOptions, args, os.Stdout)
	},
}

func init() {
	cmdRoot.AddCommand(cmdHuffman)
	cmdHuffman.AddCommand(cmdHuffmanDecode, cmdHuffmanEncode)
}

func runHuffmanDecode(gopts GlobalOptions, args []string, out io.Writer) error {
	buf, err := hex.DecodeString(args[0])
	if err != nil {
		return errors.Fatalf("invalid hex input: %v", err)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 0 {
		return errors.Fatalf("invalid length %q", args[1])
	}

	repo, err := openRepository(gopts)
	if err != nil {
		return err
	}
	defer repo.Close()

	table, err := repo.HuffmanTable()
	if err != nil {
		return err
	}
	s, err := table.DecodeText(buf, n)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, s)
	return nil
}

func runHuffmanEncode(gopts GlobalOptions, args []string, out io.Writer) error {
	repo, err := openRepository(gopts)
	if err != nil {
		return err
	}
	defer repo.Close()

	table, err := repo.HuffmanTable()
	if err != nil {
		return err
	}
	buf, n, err := table.EncodeText(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %d\n", hex.EncodeToString(buf), n)
	return nil
}
