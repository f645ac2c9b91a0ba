package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/raysh454/threatcheck/internal/app"
	"github.com/raysh454/threatcheck/internal/hashing"
	"github.com/raysh454/threatcheck/internal/model"
)

func newURLCmd(flags *rootFlags, opts []app.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "url URL",
		Short: "Check a URL before opening it",
		Long:  "Submits the URL for analysis and prints the verdict. Exits 0 when safe, 2 otherwise.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, flags, opts, model.CheckRequest{URL: args[0]}, "")
		},
	}
}

func newHashCmd(flags *rootFlags, opts []app.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "hash HEX",
		Short: "Look up a file hash (md5, sha1 or sha256)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, flags, opts, model.CheckRequest{Hash: args[0]}, "")
		},
	}
}

func newFileCmd(flags *rootFlags, opts []app.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "file PATH",
		Short: "Hash a local file with SHA-256 and look it up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := hashing.SHA256File(args[0])
			if err != nil {
				return &ExitError{code: ExitCodeError, message: err.Error()}
			}
			return runVerify(cmd, flags, opts, model.CheckRequest{Hash: sum, FileName: args[0]}, sum)
		},
	}
}

func runVerify(cmd *cobra.Command, flags *rootFlags, opts []app.Option, req model.CheckRequest, sha256 string) error {
	a, err := newApplication(cmd, flags, opts)
	if err != nil {
		return err
	}
	defer a.Shutdown(context.Background())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res := a.Verifier.Verify(ctx, req)

	if err := printResult(cmd.OutOrStdout(), req, res, sha256, flags.jsonOut); err != nil {
		return &ExitError{code: ExitCodeError, message: err.Error()}
	}
	if !res.IsSafe {
		return &ExitError{code: ExitCodeUnsafe}
	}
	return nil
}
