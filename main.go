package main

import "github.com/bogdangri/capstone-adk-project/cmd"

func main() {
	cmd.Execute()
}
