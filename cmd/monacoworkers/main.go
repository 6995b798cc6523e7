package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/cryguy/monacoworkers/cmd/monacoworkers/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
