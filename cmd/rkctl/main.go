package main

import "rightskeeper/internal/cli"

func main() {
	cli.Execute()
}
