package main

import (
	"log"

	"github.com/spf13/cobra"

	servecmd "github.com/finvera/backoffice/internal/cli/servecmd"
)

func main() {
	root := &cobra.Command{Use: "merchantd", Short: "Merchant backoffice service"}
	root.AddCommand(servecmd.New())
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
