package main

import (
	"fmt"
	"os"

	"github.com/kacchios/kacchi/cmd"
)

func main() {
	kacchiCmd := cmd.SetupCLI()
	if err := kacchiCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
