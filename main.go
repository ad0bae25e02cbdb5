package main

import "codedoc/cmd"

func main() {
	cmd.Run()
}
