package main

import "echoburst/cmd"

func main() {
	cmd.Execute()
}
