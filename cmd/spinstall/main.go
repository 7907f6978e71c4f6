package main

import "github.com/quantmind-br/spclone-go/internal/cli"

func main() {
	cli.Execute(cli.NewInstallCommand())
}
