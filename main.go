package main

import "connprobe/cmd"

func main() {
	cmd.Execute()
}
