package main

import "github.com/tailwags/blossom/cmd/blossom/cmd"

func main() {
	cmd.Execute()
}
