package main

import "github.com/TheSmartAz/zaoya-sub000/internal/cli"

func main() {
	cli.Execute()
}
