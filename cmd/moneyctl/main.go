package main

import (
	"fmt"
	"os"

	"github.com/ayo6706/moneybank/internal/cli"
)

func main() {
	if err := cli.NewRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "moneyctl:", err)
		os.Exit(1)
	}
}
