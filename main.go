package main

import "github.com/audimetria/audimetria/cmd"

func main() {
	cmd.Execute()
}
