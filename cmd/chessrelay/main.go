package main

import (
	"github.com/jmallard/chessrelay/internal/cli"
)

func main() {
	cli.Execute()
}
