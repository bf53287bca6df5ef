package main

import "github.com/sockitlab/spisim/cmd/spisim/cmd"

func main() {
	cmd.Execute()
}
