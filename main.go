package main

import (
	"gitlab.com/nvctl/gpu-undervolt/cmd"
	"gitlab.com/nvctl/gpu-undervolt/internal/config"
)

func main() {
	config.LoadConfig()

	// Execute command-line interface; should be the last call in main()
	cmd.Execute()
}
