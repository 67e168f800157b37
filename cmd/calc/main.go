package main

import "github.com/vogtb/go-spreadsheet/packages/calc/cmd/calc/internal/command"

func main() {
	command.Execute()
}
