// Command journey builds Sankey flows of chatbot conversations.
package main

import (
	"os"

	"github.com/mgb22/chatbotjourney/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
