package main

import "autotag/cmd"

func main() {
	cmd.Execute()
}
