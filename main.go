package main

import "chatdocs/cmd"

func main() {
	cmd.Execute()
}
