package main

import "github.com/yohans-kasaw/taskloop/cmd"

func main() {
	cmd.Execute()
}
