package main

import "github.com/daniltm/prodbot/cmd"

func main() {
	cmd.Execute()
}
