package commands

// Source drivers register themselves with the source registry on import.
import (
	_ "github.com/mgb22/chatbotjourney/internal/source/duckdb"
	_ "github.com/mgb22/chatbotjourney/internal/source/file"
	_ "github.com/mgb22/chatbotjourney/internal/source/postgres"
	_ "github.com/mgb22/chatbotjourney/internal/source/sqlite"
)
