package main

import "listings/cli"

func main() {
	cli.Execute()
}
