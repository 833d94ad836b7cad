package main

import "github.com/CRISUM/MeetingTool/internal/cli"

var version = "0.1.0"

func main() {
	cli.Execute(version)
}
