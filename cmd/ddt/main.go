package main

import "github.com/ddtlab/ddt/internal/cli"

func main() {
	cli.Execute()
}
