package main

import "LabelDesk/cmd"

func main() {
	cmd.Execute()
}
