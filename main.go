package main

import "github.com/luthersystems/eclj/cmd"

func main() {
	cmd.Execute()
}
