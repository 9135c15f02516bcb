package main

import "github.com/jkubale/namerecall/cmd"

func main() {
	cmd.Execute()
}
