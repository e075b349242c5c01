package main

import "papereval/internal/cli"

func main() {
	cli.Execute()
}
