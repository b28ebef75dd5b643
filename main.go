package main

import "github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/cmd"

var version = "v0.1.0"

func main() {
	cmd.Execute(version)
}
