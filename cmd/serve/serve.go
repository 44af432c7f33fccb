// Package serve implements the serve command, running the HTTP service.
package serve

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obistack/occurrence-go/internal/analysis"
	"github.com/obistack/occurrence-go/internal/annotation"
	"github.com/obistack/occurrence-go/internal/api"
	"github.com/obistack/occurrence-go/internal/conf"
	"github.com/obistack/occurrence-go/internal/datastore"
	"github.com/obistack/occurrence-go/internal/worms"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the occurrence analysis HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(settings)
		},
	}
}

func runServe(settings *conf.Settings) error {
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

	var normalizer analysis.Normalizer
	if settings.WoRMS.Enabled {
		client, err := worms.NewClient(worms.ConfigFromSettings(settings))
		if err != nil {
			return fmt.Errorf("failed to create WoRMS client: %w", err)
		}
		defer client.Close()
		normalizer = client
	}

	annotations := annotation.NewStore(store)
	processor := analysis.New(settings, normalizer)
	controller := api.New(settings, processor, annotations)

	return controller.Start()
}
