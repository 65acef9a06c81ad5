package main

import "github.com/aussiebroadwan/accounts/cmd/accounts/cmd"

func main() {
	cmd.Execute()
}
