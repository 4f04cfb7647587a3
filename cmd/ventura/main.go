package main

import (
	"fmt"
	"log"
	"os"

	"github.com/venturahq/ventura/internal/apiclient"
	"github.com/venturahq/ventura/internal/clientconfig"
	"github.com/venturahq/ventura/internal/tui"
)

func main() {
	cfg, cfgPath, err := clientconfig.Load()
	if err != nil {
		log.Fatalf("config error (%s): %v", cfgPath, err)
	}

	client, err := apiclient.New(cfg, clientconfig.ResolveToken(cfg))
	if err != nil {
		log.Fatalf("dial error: %v", err)
	}
	defer client.Close()

	if err := tui.Run(cfg, client); err != nil {
		fmt.Fprintf(os.Stderr, "ventura: %v\n", err)
		os.Exit(1)
	}
}
