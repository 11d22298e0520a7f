package main

import "github.com/zplay/zplay/cmd"

func main() {
	cmd.Execute()
}
