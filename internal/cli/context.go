package cli

import (
	"github.com/law-makers/reviewlens/internal/app"
)

// globalApp holds the initialized application shared by all commands.
var globalApp *app.Application

// SetApp stores the application for commands to access.
func SetApp(a *app.Application) {
	globalApp = a
}

// GetApp retrieves the application initialized by the root command.
func GetApp() *app.Application {
	return globalApp
}
