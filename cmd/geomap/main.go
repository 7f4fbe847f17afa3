// cmd/geomap/main.go
package main

import (
	"github.com/bstardust/geomap/internal/logger"
	"github.com/bstardust/geomap/pkg/cli"
)

func main() {
	// Initialize logger
	logger.Init()

	// Execute CLI
	cli.Execute()
}
