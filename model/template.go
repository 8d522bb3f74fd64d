package model

import (
	"os"
	"strings"

	"github.com/aymerick/raymond"
	"github.com/mykhaliev/agent-scenarios/logger"
)

// RenderTemplate parses and executes a Handlebars template against the given
// variable context. If parsing or execution fails the input is returned
// unchanged so a malformed template degrades to a literal string.
func RenderTemplate(input string, context map[string]string) string {
	tmpl, err := raymond.Parse(input)
	if err != nil {
		logger.Logger.Warn("Failed to parse template", "error", err)
		return input
	}

	output, err := tmpl.Exec(context)
	if err != nil {
		logger.Logger.Warn("Failed to execute template", "error", err)
		return input
	}

	return output
}

// GetAllEnv returns the process environment as a map, for seeding the
// template context.
func GetAllEnv() map[string]string {
	envMap := make(map[string]string)
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}
	return envMap
}
