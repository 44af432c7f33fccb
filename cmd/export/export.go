// Package export implements the export command, writing annotation export
// documents from the persisted store joined against a saved result set.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/obistack/occurrence-go/internal/annotation"
	"github.com/obistack/occurrence-go/internal/conf"
	"github.com/obistack/occurrence-go/internal/datastore"
	"github.com/obistack/occurrence-go/internal/export"
	"github.com/obistack/occurrence-go/internal/occurrence"
)

// Command creates the export command.
func Command(settings *conf.Settings) *cobra.Command {
	var format string
	var outputDir string

	cmd := &cobra.Command{
		Use:   "export [results.json]",
		Short: "Export stored annotations joined against a saved result set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, settings, args[0], format, outputDir)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "current", "Export format: current or legacy")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Directory the export document is written to")

	return cmd
}

func runExport(cmd *cobra.Command, settings *conf.Settings, resultsPath, format, outputDir string) error {
	var filename string
	switch format {
	case "current":
		filename = export.FileNameCurrent
	case "legacy":
		filename = export.FileNameLegacy
	default:
		return fmt.Errorf("unknown export format: %s", format)
	}

	content, err := os.ReadFile(resultsPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", resultsPath, err)
	}
	var records []occurrence.Record
	if err := json.Unmarshal(content, &records); err != nil {
		return fmt.Errorf("failed to parse result set %s: %w", resultsPath, err)
	}

	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no state store enabled, enable sqlite or mysql output")
	}
	if err := store.Open(); err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	annotations := annotation.NewStore(store).All()

	outputPath := filepath.Join(outputDir, filename)
	outputFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outputPath, err)
	}
	defer outputFile.Close()

	if format == "legacy" {
		err = export.WriteLegacy(outputFile, annotations, records)
	} else {
		err = export.WriteCurrent(outputFile, annotations, records)
	}
	if err != nil {
		if errors.Is(err, export.ErrNoResults) {
			// Nothing to export is not a failure, drop the empty file.
			outputFile.Close()
			os.Remove(outputPath)
			fmt.Fprintln(cmd.OutOrStdout(), "no results to export")
			return nil
		}
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "wrote", outputPath)
	return nil
}
