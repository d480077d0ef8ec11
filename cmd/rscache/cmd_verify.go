package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/skyline93/rscache/internal/checker"
	"github.com/skyline93/rscache/internal/checksum"
	"github.com/skyline93/rscache/internal/errors"
	"github.com/skyline93/rscache/internal/repository"
	"github.com/skyline93/rscache/internal/rs"
)

var cmdVerify = &cobra.Command{
	Use:   "verify [flags]",
	Short: "Check every archive of the store",
	Long: `
The "verify" command reads and decodes every archive and compares its checksum
with the value recorded in the reference table. With --digest the whirlpool
digests of archives and whole indices are compared as well.

With --fingerprints the payloads are also compared with a listing written by
"ls --json --fingerprint", usually taken from another copy of the store.

EXIT STATUS
===========

Exit status is 0 if all archives passed, and non-zero otherwise.
`,
	Args:              cobra.NoArgs,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVerify(cmd.Context(), verifyOptions, globalOptions, os.Stdout)
	},
}

// VerifyOptions bundles all options for the verify command.
type VerifyOptions struct {
	Workers      uint
	Digest       bool
	Fingerprints string
}

var verifyOptions VerifyOptions

func init() {
	cmdRoot.AddCommand(cmdVerify)

	f := cmdVerify.Flags()
	f.UintVar(&verifyOptions.Workers, "workers", 4, "verify `n` archives concurrently")
	f.BoolVar(&verifyOptions.Digest, "digest", false, "also compare whirlpool digests")
	f.StringVar(&verifyOptions.Fingerprints, "fingerprints", "", "compare payloads with the fingerprints in `file`")
}

func runVerify(ctx context.Context, opts VerifyOptions, gopts GlobalOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// reads during the check use the mode chosen here
	gopts.Verify = "off"
	repo, err := openRepository(gopts)
	if err != nil {
		return err
	}
	defer repo.Close()

	mode := checksum.CRC
	if opts.Digest {
		mode = checksum.Digest
	}

	report, err := checker.New(repo, mode, opts.Workers).Check(ctx)
	if err != nil {
		return err
	}

	for _, f := range report.Failures {
		fmt.Fprintln(out, f)
	}
	fmt.Fprintf(out, "%d archives in %d indices checked, %d failures\n", report.Archives, report.Indices, len(report.Failures))

	failures := len(report.Failures)
	if opts.Fingerprints != "" {
		n, err := compareFingerprints(repo, opts.Fingerprints, out)
		if err != nil {
			return err
		}
		failures += n
	}

	if failures > 0 {
		return errors.Fatal("store is damaged or does not match the recorded revision")
	}
	return nil
}

// compareFingerprints reads the listing in name and returns the number of
// archives whose payload differs from it.
func compareFingerprints(repo *repository.Repository, name string, out io.Writer) (int, error) {
	buf, err := os.ReadFile(name)
	if err != nil {
		return 0, errors.Fatalf("unable to read fingerprints: %v", err)
	}

	var list []lsArchive
	if err := json.Unmarshal(buf, &list); err != nil {
		return 0, errors.Fatalf("invalid fingerprints in %v: %v", name, err)
	}

	failures, checked := 0, 0
	for _, la := range list {
		if la.Fingerprint == nil {
			continue
		}
		checked++

		payload, err := repo.Read(la.Index, la.Archive)
		if err != nil {
			fmt.Fprintf(out, "archive %d/%d: %v\n", la.Index, la.Archive, err)
			failures++
			continue
		}
		if id := rs.Hash(payload); !id.Equal(*la.Fingerprint) {
			fmt.Fprintf(out, "archive %d/%d: fingerprint %v, expected %v\n", la.Index, la.Archive, id.Str(), la.Fingerprint.Str())
			failures++
		}
	}
	fmt.Fprintf(out, "%d fingerprints compared, %d differ\n", checked, failures)
	return failures, nil
}
