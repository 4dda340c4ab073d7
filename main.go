package main

import "github.com/wbl-labs/leadharvest/cmd"

func main() {
	cmd.Execute()
}
