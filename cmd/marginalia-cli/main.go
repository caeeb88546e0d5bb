package main

import "marginalia/cmd/marginalia-cli/cmd"

func main() {
	cmd.Execute()
}
