package main

import "navigator-backend/internal/cli"

func main() {
	cli.Execute()
}
