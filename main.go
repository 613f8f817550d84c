package main

import "cuetrainer/cmd"

func main() {
	cmd.Execute()
}
