package main

import (
	"clipscout/cmd/clipscout/cmd"
)

func main() {
	cmd.Execute()
}
