package cli

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/diillson/sandbox-cost-collector/pkg/version"
)

// displayWelcomeBanner exibe o banner de boas-vindas com informações de versão.
func displayWelcomeBanner() {
	banner := `
         ____                  _ _                  ____          _
        / ___|  __ _ _ __   __| | |__   _____  __  / ___|___  ___| |_ ___
        \___ \ / _' | '_ \ / _' | '_ \ / _ \ \/ / | |   / _ \/ __| __/ __|
         ___) | (_| | | | | (_| | |_) | (_) >  <  | |__| (_) \__ \ |_\__ \
        |____/ \__,_|_| |_|\__,_|_.__/ \___/_/\_\  \____\___/|___/\__|___/
        `
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	blue := color.New(color.FgBlue, color.Bold).SprintFunc()

	fmt.Println(cyan(banner))
	fmt.Println(blue(fmt.Sprintf("Sandbox Cost Collector (v%s)", version.FormatVersion())))
}
