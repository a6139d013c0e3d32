// Package main provides the offline story curation CLI.
//
// Usage:
//
//	storyctl generate <query> [--author NAME] [--chapter N] [--story NAME] [--output PATH]
//	storyctl reorder <story> <manifest> <output> [--no-fetch-missing]
package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// Globals are shared by every command
type Globals struct {
	Env      string `help:"Environment (local, dev, prod)" env:"ENV" default:"local"`
	LogLevel string `help:"Log level override" env:"LOG_LEVEL"`
}

// CLI is the storyctl command tree
type CLI struct {
	Globals

	Generate GenerateCmd `cmd:"" help:"Generate a story from a topic query in textual order"`
	Reorder  ReorderCmd  `cmd:"" help:"Rebuild a story in the order of a CSV manifest"`
}

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("storyctl"),
		kong.Description("Maktabah story curation tools"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Bind(&cli.Globals),
		kong.BindTo(io.Writer(os.Stdout), (*io.Writer)(nil)),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
