package main

import "github.com/notargets/dgad/cmd"

func main() {
	cmd.Execute()
}
