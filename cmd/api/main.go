package main

import (
	"fmt"
	"os"

	"github.com/ayo6706/moneybank/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "moneybank: %v\n", err)
		os.Exit(1)
	}
}
