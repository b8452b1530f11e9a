package main

import "rawserial/cmd"

func main() {
	cmd.Execute()
}
