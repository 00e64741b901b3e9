package main

import (
	"log"

	"flowbot/bot"
	corecmd "flowbot/core/cmd"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return bot.Load(path)
		},
		Bootstrap: func(cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return bot.New(cfg.(*bot.Config))
		},
	})
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
