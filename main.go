package main

import "pattern-editor/pkg/cli"

func main() {
	cli.Execute()
}
