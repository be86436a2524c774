package main

import "github.com/dimz119/project-saeum/internal/cli"

func main() {
	cli.Execute()
}
