package main

import (
	"salesdw/internal/cli"

	// Register all storage backends.
	_ "salesdw/internal/storage/all"
)

func main() {
	cli.Execute()
}
