package config_test

import (
	"fmt"

	"github.com/wonny/eds/backend/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	fmt.Printf("Server running on port: %s\n", cfg.Port)
	fmt.Printf("Market timezone: %s\n", cfg.Pipeline.Location())
	fmt.Printf("Workers: %d, EWMA alpha: %.2f\n", cfg.Pipeline.Workers, cfg.Pipeline.EWMAAlpha)
}
