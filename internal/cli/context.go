// Package cli provides the command-line interface for expocrawl.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/medline/expocrawl/internal/app"
)

// Global reference shared by the commands. Set by the root command's
// PersistentPreRunE, cleared by PersistentPostRun.
var globalApp *app.Application

// SetApp stores the Application for commands to access.
func SetApp(cmd *cobra.Command, a *app.Application) {
	if cmd == nil {
		return
	}
	globalApp = a
}

// GetApp retrieves the current Application, or nil before initialization.
func GetApp() *app.Application {
	return globalApp
}
