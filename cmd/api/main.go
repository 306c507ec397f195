package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/HardikTIET/MUJ-RAGBOT/internal/api"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/config"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	h := api.NewServer(cfg)
	log.Printf("ragbot api listening on %s llm_providers=%q embed_providers=%q", cfg.APIAddr, cfg.LLMProviders, cfg.EmbedProviders)
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		log.Fatal(err)
	}
}
