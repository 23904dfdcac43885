package main

import (
	"github.com/law-makers/reviewlens/internal/cli"
)

func main() {
	cli.Execute()
}
