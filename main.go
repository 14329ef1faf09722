package main

import "studenthub/internal/cli"

func main() {
	cli.Execute()
}
