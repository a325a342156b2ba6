package main

import (
	"log"

	"github.com/zimablue/zima-blue/cmd"
	"github.com/zimablue/zima-blue/config"
)

func main() {
	log.Printf("zima blue %s (%s)", config.Version, config.CommitHash)
	cmd.Execute()
}
