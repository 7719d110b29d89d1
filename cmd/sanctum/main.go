package main

import "sanctum/internal/cli"

func main() {
	cli.Execute()
}
