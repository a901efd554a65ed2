package main

import "github.com/purelink/purelink/cmd"

func main() {
	cmd.Execute()
}
