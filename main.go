package main

import "github.com/iksnae/llm-inspector/cmd"

func main() {
	cmd.Execute()
}
