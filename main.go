package main

import (
	"github.com/elevans/imgal/cmd"
)

func main() {
	cmd.Execute()
}
