package main

import (
	"fmt"

	"github.com/nci/eodatasets/verify"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <checksum_file>...",
	Short: "Check the files of packages against their checksums",
	Long: `Verify re-reads every file listed in a package's checksum file
(such as ga_ls8c_ard_3-1-0_090084_2020-01-01_final.sha1) and reports those
that are missing or changed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := 0
	for _, checksumFile := range args {
		failures, err := verify.VerifyFile(checksumFile)
		if err != nil {
			return err
		}
		for _, r := range failures {
			if r.Err != nil {
				fmt.Fprintf(out, "FAILED %s: %v\n", r.Path, r.Err)
			} else {
				fmt.Fprintf(out, "FAILED %s: checksum differs\n", r.Path)
			}
		}
		if len(failures) == 0 {
			fmt.Fprintf(out, "%s: OK\n", checksumFile)
		}
		failed += len(failures)
	}
	if failed > 0 {
		return fmt.Errorf("%d files failed verification", failed)
	}
	return nil
}
