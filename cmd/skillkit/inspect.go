package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillkit/pkg/packager"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <archive>",
		Short: "List the contents of a skill archive",
		Long: `Print the members, checksum and descriptor of an archive built by
'skillkit package'.

Exit codes: 0 success, 1 unreadable or invalid archive, 3 archive not found.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			if err := validateFormat(format); err != nil {
				return err
			}
			return runInspect(cmd, args[0], format)
		},
	}

	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	return cmd
}

func runInspect(cmd *cobra.Command, path, format string) error {
	archive, err := packager.Inspect(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		data, err := json.MarshalIndent(archive, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to encode archive")
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	p := newPresenter(cmd)
	p.Section(fmt.Sprintf("%s (%s)", archive.Descriptor.Name, archive.Path))
	p.Info(archive.Descriptor.Description)
	p.Info("")
	p.Info(fmt.Sprintf("SHA-256: %s", archive.SHA256))
	p.Info(fmt.Sprintf("Size:    %d bytes", archive.Size))
	p.Info("")

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODE\tSIZE\tCRC32\tNAME")
	for _, m := range archive.Members {
		fmt.Fprintf(w, "%s\t%d\t%08x\t%s\n", m.Mode, m.Size, m.CRC32, m.Name)
	}
	return errors.Wrap(w.Flush(), "failed to write member list")
}
