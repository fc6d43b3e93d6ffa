package main

import (
	"fmt"
	"os"

	"github.com/soyeahso/oagate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "oagate:", err)
		os.Exit(1)
	}
}
