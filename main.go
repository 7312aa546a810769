package main

import "github.com/quorlock/quorlock/cmd"

func main() {
	cmd.Execute()
}
