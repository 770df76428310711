package main

import (
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/cli"
)

func main() {
	cli.Execute()
}
