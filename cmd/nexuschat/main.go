package main

import (
	"flag"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"nexusrag/internal/apiclient"
	"nexusrag/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var baseURL string
	flag.StringVar(&baseURL, "server", "http://127.0.0.1:8000", "Base URL of the nexusd server")
	flag.Parse()

	client := apiclient.New(baseURL)
	m := tui.New(client)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}
