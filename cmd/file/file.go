// Package file implements the file command, a one-shot analysis of a local
// occurrence file or Darwin Core archive.
package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/obistack/occurrence-go/internal/analysis"
	"github.com/obistack/occurrence-go/internal/conf"
	"github.com/obistack/occurrence-go/internal/worms"
)

// Command creates the file command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "file [occurrence file or archive]",
		Short: "Analyze a local occurrence file or Darwin Core archive",
		Long:  "Run the upload analysis pipeline against a local file and print the processing envelope as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(cmd, settings, args[0])
		},
	}
}

func runFile(cmd *cobra.Command, settings *conf.Settings, inputPath string) error {
	content, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	files, err := analysis.ExpandUpload(filepath.Base(inputPath), content)
	if err != nil {
		return fmt.Errorf("failed to expand %s: %w", inputPath, err)
	}

	var normalizer analysis.Normalizer
	if settings.WoRMS.Enabled {
		client, err := worms.NewClient(worms.ConfigFromSettings(settings))
		if err != nil {
			return fmt.Errorf("failed to create WoRMS client: %w", err)
		}
		defer client.Close()
		normalizer = client
	}

	processor := analysis.New(settings, normalizer)
	result := processor.ProcessUpload(cmd.Context(), files)

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
