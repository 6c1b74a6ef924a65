package main

import (
	"codeberg.org/mutker/vmctl/cmd/vmctl/commands"
)

func main() {
	commands.Execute()
}
