package main

import "github.com/skytree/skytree/cmd"

func main() {
	cmd.Execute()
}
