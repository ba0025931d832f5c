package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/woodsintl/woodsreport/internal/render"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// checkOutput rejects binary formats bound for the terminal.
func checkOutput(format render.Format, path string) error {
	if format.Binary() && path == "" {
		return fmt.Errorf("%s output needs a file, use -o <file>.%s", format, format)
	}
	return nil
}

var createFile = func(path string) (io.WriteCloser, error) { return os.Create(path) }

// writeOutput calls write with path opened for writing, or with stdout when
// path is empty. A failed close is reported since it can lose buffered data.
func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) (err error) {
	if path == "" {
		return write(cmd.OutOrStdout())
	}
	file, err := createFile(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close %s: %w", path, cerr))
		}
	}()
	return write(file)
}
