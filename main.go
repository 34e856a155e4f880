package main

import "github.com/MeKo-Tech/masklab/internal/cmd"

func main() {
	cmd.Execute()
}
