package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/personashield/internal/config"
	"github.com/nao1215/personashield/internal/pdfmeta"
)

// NewInspectCmd creates the inspect command.
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <pdf>...",
		Short: "Inspect PDF metadata locally without uploading",
		Long: `Inspect runs the local pre-flight check that precedes every upload and
prints what the document leaks through its metadata: document properties,
XMP packets and EXIF data of embedded photos.

Nothing is sent over the network.

Examples:
  personashield inspect resume.pdf
  personashield inspect --json resume.pdf cover-letter.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: runInspectCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Output results as JSON")
	cmd.Flags().Int64("max-size", config.DefaultMaxFileSize, "Largest accepted file in bytes")

	return cmd
}

// runInspectCmd executes the inspect command.
func runInspectCmd(cmd *cobra.Command, args []string) error {
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	maxSize, err := cmd.Flags().GetInt64("max-size")
	if err != nil {
		return err
	}

	inspector := pdfmeta.NewInspector(pdfmeta.WithMaxSize(maxSize))
	results := make([]*pdfmeta.Result, 0, len(args))
	var failed int
	for _, path := range args {
		res, err := inspector.InspectFile(cmd.Context(), path)
		if err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s: %v\n", path, err)
			continue
		}
		results = append(results, res)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(results); err != nil {
			return err
		}
	} else {
		for i, res := range results {
			if i > 0 {
				fmt.Fprintln(out)
			}
			writeInspection(out, res)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents could not be inspected", failed, len(args))
	}
	return nil
}

// writeInspection prints one result in human-readable form.
func writeInspection(w io.Writer, res *pdfmeta.Result) {
	fmt.Fprintf(w, "%s (PDF %s, %d bytes)\n", res.Name, orUnknown(res.Version), res.Size)
	fmt.Fprintf(w, "  Fingerprint: %s\n", res.Fingerprint)

	if len(res.Metadata) > 0 {
		fmt.Fprintln(w, "  Metadata:")
		for _, f := range res.Metadata {
			fmt.Fprintf(w, "    %-20s %s\n", f.Key, f.Value)
		}
	}

	if len(res.Findings) == 0 {
		fmt.Fprintln(w, "  No metadata exposure found.")
		return
	}
	fmt.Fprintf(w, "  Findings (%d, highest %s):\n", len(res.Findings), res.MaxSeverity())
	for _, f := range res.Findings {
		fmt.Fprintf(w, "    [%s] %s\n", strings.ToUpper(f.Severity.String()), f.Title)
		if f.Value != "" {
			fmt.Fprintf(w, "           %s\n", f.Value)
		}
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
