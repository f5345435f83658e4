package main

import (
	"fmt"
	"os"

	"github.com/Aashish23092/isic-card-ocr/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
