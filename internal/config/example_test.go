package config_test

import (
	"fmt"
	"log"

	"github.com/robert-malhotra/stac-grid-explorer/internal/config"
)

func ExampleLoad() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// Access configuration values
	fmt.Printf("Page size: %d\n", cfg.Catalog.PageSize)
	fmt.Printf("Cell size: %g\n", cfg.Grid.CellSizeDeg)
	fmt.Printf("Profile: %s\n", cfg.Command.Profile)

	// Output:
	// Page size: 50
	// Cell size: 1
	// Profile: raster-foundry
}
