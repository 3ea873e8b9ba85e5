package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/feesql/internal/listing"
	"github.com/sells-group/feesql/internal/pipeline"
)

// readListing reads the listing at path, or stdin when path is "-".
func readListing(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		return listing.Read(cmd.InOrStdin())
	}
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "open listing %s", path)
	}
	defer f.Close()
	return listing.Read(f)
}

// printDiagnostics writes one line per skipped record followed by a
// summary line.
func printDiagnostics(w io.Writer, s *pipeline.Summary, action string, done int) {
	for _, d := range s.Skipped {
		fmt.Fprintln(w, d.String())
	}
	fmt.Fprintf(w, "%d of %d records %s, %d skipped\n", done, s.Total, action, len(s.Skipped))
}
