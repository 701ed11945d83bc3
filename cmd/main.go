package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/breeew/otterly-api/cmd/service"
)

func main() {
	root := &cobra.Command{
		Use:   "otterly",
		Short: "otterly api",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("empty command, try `otterly service`")
		},
	}

	root.AddCommand(service.NewCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
