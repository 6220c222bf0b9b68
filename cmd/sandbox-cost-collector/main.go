package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/diillson/sandbox-cost-collector/internal/adapter/driving/cli"
)

func main() {
	// Um .env local é conveniência de desenvolvimento; em produção as
	// variáveis vêm do ambiente do serviço.
	_ = godotenv.Load()

	app := cli.NewCLIApp()
	if err := app.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
