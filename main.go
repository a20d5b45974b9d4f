package main

import "github.com/crystaldolphin/toolagent/cmd"

func main() {
	cmd.Execute()
}
