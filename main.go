package main

import "github.com/imlxw/Chronicle-Map/cmd"

func main() {
	cmd.Execute()
}
