package main

import "github.com/devicelab-dev/browser-runner/pkg/cli"

func main() {
	cli.Execute()
}
