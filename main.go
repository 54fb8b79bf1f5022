package main

import "github.com/cppla/lireddit/cmd"

func main() {
	cmd.Execute()
}
