// =============================================================================
// Tenant Invoicer - Main Entry Point
// =============================================================================
//
// This is the main entry point for the invoicer CLI. It delegates command
// execution to the cmd package.
//
// USAGE:
//   invoicer generate     - Generate the invoices for a statement month
//   invoicer validate     - Check the inputs without writing anything
//   invoicer properties   - List the property lookup table
//   invoicer prune        - Delete old run directories
//   invoicer version      - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Ingestion, billing, rendering and run packaging
//   - pkg/utils/     : Run directory and output file helpers
//   - template/      : Invoice template and property table
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/tenant-invoicer/cmd"
)

func main() {
	cmd.Execute()
}
