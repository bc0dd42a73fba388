package main

import "sentinel-cli/cmd"

func main() {
	cmd.Execute()
}
