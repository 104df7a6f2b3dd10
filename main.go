package main

import "github.com/sw33tLie/lootscope/cmd"

func main() {
	cmd.Execute()
}
