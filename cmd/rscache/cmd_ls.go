package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/skyline93/rscache/internal/codec"
	"github.com/skyline93/rscache/internal/errors"
	"github.com/skyline93/rscache/internal/repository"
	"github.com/skyline93/rscache/internal/rs"
)

var cmdLs = &cobra.Command{
	Use:   "ls [index]",
	Short: "List indices or the archives of an index",
	Long: `
The "ls" command lists all indices of the store with their archive count. When
an index is given, it lists the archives of that index. --compression limits
the listing to archives stored with the given codec (none, bzip2, gzip, lzma).

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	Args:              cobra.MaximumNArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLs(lsOptions, globalOptions, args, os.Stdout)
	},
}

// LsOptions bundles all options for the ls command.
type LsOptions struct {
	JSON        bool
	Fingerprint bool
	Compression string
}

var lsOptions LsOptions

func init() {
	cmdRoot.AddCommand(cmdLs)

	f := cmdLs.Flags()
	f.BoolVar(&lsOptions.JSON, "json", false, "print JSON instead of text")
	f.BoolVar(&lsOptions.Fingerprint, "fingerprint", false, "read every archive and print the fingerprint of its payload")
	f.StringVar(&lsOptions.Compression, "compression", "", "only list archives compressed with `codec`")
}

type lsArchive struct {
	Index       uint8  `json:"index"`
	Archive     uint32 `json:"archive"`
	Sector      uint32 `json:"sector"`
	Length      uint32 `json:"length"`
	Compression string `json:"compression,omitempty"`
	Fingerprint *rs.ID `json:"fingerprint,omitempty"`
}

type lsIndex struct {
	Index    uint8 `json:"index"`
	Archives int   `json:"archives"`
	Revision int64 `json:"revision"`
}

func parseIndex(s string) (uint8, error) {
	id, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, errors.Fatalf("invalid index %q", s)
	}
	return uint8(id), nil
}

func parseArchive(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.Fatalf("invalid archive %q", s)
	}
	return uint32(id), nil
}

func runLs(opts LsOptions, gopts GlobalOptions, args []string, out io.Writer) error {
	repo, err := openRepository(gopts)
	if err != nil {
		return err
	}
	defer repo.Close()

	if len(args) == 0 {
		if opts.Compression != "" {
			return errors.Fatal("--compression needs an index")
		}
		return listIndices(repo, opts, out)
	}

	id, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	return listArchives(repo, id, opts, out)
}

func listIndices(repo *repository.Repository, opts LsOptions, out io.Writer) error {
	var list []lsIndex
	for _, id := range repo.Indices() {
		idx, err := repo.Index(id)
		if err != nil {
			return err
		}
		li := lsIndex{Index: id, Archives: idx.Len(), Revision: -1}
		if meta := idx.Metadata(); meta != nil {
			li.Revision = int64(meta.Revision)
		}
		list = append(list, li)
	}

	if opts.JSON {
		return json.NewEncoder(out).Encode(list)
	}
	for _, li := range list {
		rev := "-"
		if li.Revision >= 0 {
			rev = strconv.FormatInt(li.Revision, 10)
		}
		fmt.Fprintf(out, "%3d  %6d archives  revision %s\n", li.Index, li.Archives, rev)
	}
	return nil
}

func listArchives(repo *repository.Repository, id uint8, opts LsOptions, out io.Writer) error {
	var filter codec.Compression
	if opts.Compression != "" {
		c, err := codec.ParseCompression(opts.Compression)
		if err != nil {
			return errors.Fatalf("%v", err)
		}
		filter = c
	}

	idx, err := repo.Index(id)
	if err != nil {
		return err
	}

	var list []lsArchive
	for archive := range idx.ArchiveIDs() {
		e, err := idx.Lookup(archive)
		if err != nil {
			return err
		}
		la := lsArchive{Index: id, Archive: archive, Sector: e.Ref.Sector, Length: e.Ref.Length}

		if opts.Compression != "" {
			raw, err := repo.ReadRaw(id, archive)
			if err != nil {
				return err
			}
			// the tag byte is never encrypted
			if len(raw) == 0 || codec.Compression(raw[0]) != filter {
				continue
			}
			la.Compression = filter.String()
		}

		if opts.Fingerprint {
			buf, err := repo.Read(id, archive)
			if err != nil {
				return err
			}
			fp := rs.Hash(buf)
			la.Fingerprint = &fp
		}
		list = append(list, la)
	}

	if opts.JSON {
		return json.NewEncoder(out).Encode(list)
	}
	for _, la := range list {
		fmt.Fprintf(out, "%3d/%-6d sector %8d  %8d bytes", la.Index, la.Archive, la.Sector, la.Length)
		if la.Fingerprint != nil {
			fmt.Fprintf(out, "  %s", la.Fingerprint.Str())
		}
		fmt.Fprintln(out)
	}
	return nil
}
