package main

import "github.com/theirongolddev/atlas/cmd"

func main() {
	cmd.Execute()
}
