package main

import "github.com/jerrynoah96/ajofi/internal/cli"

func main() {
	cli.Execute()
}
